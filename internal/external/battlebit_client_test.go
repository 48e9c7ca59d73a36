package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bom = "\xef\xbb\xbf"

const sampleList = `[{"Name":"Server1","Map":"Basra","MapSize":"Big","Gamemode":"CONQ","Region":"Europe_Central","Players":80,"QueuePlayers":0,"MaxPlayers":127,"Hz":60}]`

// newTestServer creates a test server with keep-alives disabled so parallel
// tests do not share connections.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestBattleBitClient_FetchServers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "json with byte order mark", contentType: "application/json", body: bom + sampleList},
		{name: "missing content type", contentType: "", body: bom + sampleList},
		{name: "wrong content type", contentType: "text/html; charset=iso-8859-1", body: bom + sampleList},
		{name: "no byte order mark", contentType: "application/json", body: sampleList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var userAgent string
			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userAgent = r.Header.Get("User-Agent")
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				} else {
					w.Header()["Content-Type"] = nil
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewBattleBitClient(server.URL, 5*time.Second)
			servers, err := client.FetchServers(context.Background())

			require.NoError(t, err)
			require.Len(t, servers, 1)
			assert.Equal(t, "Server1", servers[0].Name)
			assert.Equal(t, "Basra", servers[0].Map)
			assert.Equal(t, "Europe_Central", servers[0].Region)
			assert.Equal(t, "CONQ", servers[0].Gamemode)
			assert.Equal(t, 80, servers[0].Players)
			assert.Equal(t, 127, servers[0].MaxPlayers)
			assert.Equal(t, UserAgent, userAgent)
		})
	}
}

func TestBattleBitClient_FetchServers_Errors(t *testing.T) {
	t.Parallel()

	t.Run("non-success status", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewBattleBitClient(server.URL, time.Second).FetchServers(context.Background())

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(bom + `[{"Name":`))
		}))
		defer server.Close()

		_, err := NewBattleBitClient(server.URL, time.Second).FetchServers(context.Background())
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		_, err := NewBattleBitClient(server.URL, 50*time.Millisecond).FetchServers(context.Background())
		assert.Error(t, err)
	})
}

func TestDecodeServerList(t *testing.T) {
	t.Parallel()

	servers, err := DecodeServerList(strings.NewReader(bom + "[]"))
	require.NoError(t, err)
	assert.Empty(t, servers)

	_, err = DecodeServerList(strings.NewReader("null"))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeServerList(strings.NewReader(`{"Name":"not a list"}`))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNewBattleBitClient_Defaults(t *testing.T) {
	t.Parallel()

	client := NewBattleBitClient("", 0)
	assert.Equal(t, BattleBitServerListURL, client.URL())
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
}
