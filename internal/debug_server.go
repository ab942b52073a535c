package internal

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"folio-chat/feed"
	"folio-chat/repositories"

	"github.com/dgraph-io/badger/v4"
)

const defaultPrefix = "doc:"

var inspectTemplate = template.Must(template.New("inspect").Parse(`<!doctype html>
<html><head><title>folio inspect</title></head>
<body>
<form><input name="prefix" value="{{.Prefix}}"><button>scan</button></form>
<p>{{range $k, $v := .Stats}}{{$k}}: {{$v}} &middot; {{end}}</p>
<table border="1" cellpadding="4">
<tr><th>Collection</th><th>Written</th><th>ID</th><th>Detail</th></tr>
{{range .Items}}<tr><td>{{.Collection}}</td><td>{{.Timestamp}}</td><td title="{{.Key}}">{{.DocumentID}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>
</body></html>`))

type InspectRow struct {
	Key        string
	Collection string
	Timestamp  string
	DocumentID string
	Detail     string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// InspectHandler renders the badger keys under ?prefix= (default "doc:").
func InspectHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider) http.Handler {
	if mapper == nil {
		mapper = DocumentMapper
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.KeyCopy(nil)), val))
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = inspectTemplate.Execute(w, data)
	})
}

// StartDebugServer serves InspectHandler on endpoint until the process exits.
func StartDebugServer(log *slog.Logger, db *badger.DB, port int, endpoint string, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	mux.Handle(endpoint, InspectHandler(db, nil, statsProvider))
	go func() {
		addr := fmt.Sprintf("localhost:%d", port)
		log.Info("Debug Badger inspector available", "url", "http://"+addr+endpoint)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
}

// DocumentMapper reads keys laid out as doc:{collection}:{nanos}:{id}.
func DocumentMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:        key,
		Collection: "-",
		Timestamp:  "--:--:--",
		DocumentID: "-",
		Detail:     "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	parts := strings.SplitN(key, ":", 4)
	if len(parts) < 4 {
		return row
	}
	row.Collection = parts[1]
	if nanos, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
		row.Timestamp = time.Unix(0, nanos).UTC().Format(time.RFC3339Nano)
	}
	row.DocumentID = parts[3]

	doc, err := repositories.UnmarshalDocument(val)
	if err != nil {
		return row
	}
	author, _ := doc.String(feed.FieldAuthorName)
	text, _ := doc.String(feed.FieldText)
	row.Detail = fmt.Sprintf("%s: %s", author, text)
	return row
}
