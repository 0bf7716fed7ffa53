package realtime

import (
	"context"
	"net/http"
	"sync"

	"github.com/fasthttp/websocket"

	"github.com/AngelCh415/kpi-dashboard/internal/api"
)

// WSDialer opens push connections over websocket.
type WSDialer struct {
	URL string
	// Credentials, when set, adds the bearer token to the handshake.
	Credentials api.Credentials
	Dialer      *websocket.Dialer
}

func (d WSDialer) Dial(ctx context.Context) (Conn, error) {
	dl := d.Dialer
	if dl == nil {
		dl = websocket.DefaultDialer
	}
	h := http.Header{}
	if d.Credentials != nil {
		if tok, ok := d.Credentials.Token(ctx); ok {
			h.Set("Authorization", "Bearer "+tok)
		}
	}
	c, resp, err := dl.DialContext(ctx, d.URL, h)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return newWSConn(c), nil
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func newWSConn(c *websocket.Conn) *wsConn { return &wsConn{c: c} }

func (w *wsConn) Send(m Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(m)
}

func (w *wsConn) Receive() (Message, error) {
	var m Message
	err := w.c.ReadJSON(&m)
	return m, err
}

func (w *wsConn) Close() error { return w.c.Close() }
