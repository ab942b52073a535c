// Package e2e drives a running docstore. Suites skip when DOCSTORE_ADDR is unset.
package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"folio-chat/auth"
	"folio-chat/domain"
	"folio-chat/infrastructure/grpc/client"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseGrpcSuite struct {
	suite.Suite
	Config Config
	Tokens *auth.Tokens
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseGrpcSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.DocstoreAddr == "" || s.Config.JWTSecret == "" {
		s.T().Skip("DOCSTORE_ADDR and JWT_SECRET must point at a running docstore")
	}
	s.Tokens = auth.NewTokens(s.Config.JWTSecret, time.Hour)
}

// GrpcConn opens a connection logging every unary call, with its JSON bodies when E2E_DEBUG_JSON is set.
func (s *BaseGrpcSuite) GrpcConn(name string) *grpc.ClientConn {
	t := s.T()
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(s.Config.DocstoreAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.DocstoreAddr)
	return conn
}

// WithStore provides a remote document store within a contextual test step.
func (s *BaseGrpcSuite) WithStore(name string, fn func(ctx context.Context, store *client.DocumentStoreClient)) {
	conn := s.GrpcConn(name)
	defer conn.Close()

	store := client.NewDocumentStoreClient(logs.GetLoggerFromLevel(slog.LevelDebug), conn,
		client.WithBackoff(50*time.Millisecond, time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fn(ctx, store)
}

// SignedIn returns a context carrying a fresh token for identity.
func (s *BaseGrpcSuite) SignedIn(ctx context.Context, identity domain.Identity) context.Context {
	token, err := s.Tokens.Generate(identity)
	s.Require().NoError(err)
	return auth.WithToken(ctx, token)
}
