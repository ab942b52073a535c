package main

import (
	"bytes"
	"testing"
	"time"

	"folio-chat/auth"
	"folio-chat/domain"

	"github.com/docopt/docopt-go"
	"github.com/stretchr/testify/require"
)

func TestRenderMessages(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	var out bytes.Buffer

	renderMessages(&out, []domain.Message{
		{ID: "01A", Text: "hi", AuthorName: "Al", CreatedAt: &at},
		{ID: "01B", Text: "pending one", AuthorName: "Bo"},
	})

	req.Contains(out.String(), "2024-05-01 10:00:00")
	req.Contains(out.String(), "pending one")
	req.Contains(out.String(), "pending")
}

func TestMintToken(t *testing.T) {
	req := require.New(t)
	opts, err := docopt.ParseArgs(usage, []string{"mint-token", "--user=u1", "--name=Al"}, version)
	req.NoError(err)
	var out bytes.Buffer
	cmd := &command{opts: opts, config: ctlConfig{JWTSecret: "secret", AuthTokenDuration: time.Hour}, out: &out}

	req.NoError(cmd.mintToken())

	claims, err := auth.NewTokens("secret", time.Hour).Validate(string(bytes.TrimSpace(out.Bytes())))
	req.NoError(err)
	req.Equal(domain.Identity{ID: "u1", DisplayName: "Al"}, claims.Identity())
}

func TestMintToken_RequiresSecret(t *testing.T) {
	opts, err := docopt.ParseArgs(usage, []string{"mint-token", "--user=u1", "--name=Al"}, version)
	require.NoError(t, err)
	cmd := &command{opts: opts, out: &bytes.Buffer{}}

	require.ErrorContains(t, cmd.mintToken(), "JWT_SECRET")
}
