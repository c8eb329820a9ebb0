package cbr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyRateResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <KeyRateResponse xmlns="http://web.cbr.ru/">
      <KeyRateResult>
        <diffgr:diffgram xmlns:diffgr="urn:schemas-microsoft-com:xml-diffgram-v1">
          <KeyRate xmlns="">
            <KR>
              <DT>2025-06-09T00:00:00+03:00</DT>
              <Rate>20.00</Rate>
            </KR>
            <KR>
              <DT>2025-06-06T00:00:00+03:00</DT>
              <Rate>21.00</Rate>
            </KR>
          </KeyRate>
        </diffgr:diffgram>
      </KeyRateResult>
    </KeyRateResponse>
  </soap:Body>
</soap:Envelope>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *CBRClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	c := NewCBRClient(&config.Config{CBRURL: srv.URL}, log)
	c.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestGetKeyRate(t *testing.T) {
	var gotBody, gotAction string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAction = r.Header.Get("SOAPAction")
		w.Write([]byte(keyRateResponse))
	})

	kr, err := c.GetKeyRate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "20.00", kr.Rate.StringFixed(2))
	assert.Equal(t, 2025, kr.Date.Year())
	assert.Equal(t, time.June, kr.Date.Month())
	assert.Equal(t, 9, kr.Date.Day())

	assert.Equal(t, "http://web.cbr.ru/KeyRate", gotAction)
	assert.Contains(t, gotBody, "<fromDate>2025-05-11</fromDate>")
	assert.Contains(t, gotBody, "<ToDate>2025-06-10</ToDate>")
}

func TestGetKeyRateErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"not xml": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<<broken"))
		},
		"no rows": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<Envelope><diffgram><KeyRate></KeyRate></diffgram></Envelope>`))
		},
		"no rate": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<Envelope><diffgram><KeyRate><KR><DT>x</DT></KR></KeyRate></diffgram></Envelope>`))
		},
		"bad rate": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<Envelope><diffgram><KeyRate><KR><Rate>high</Rate></KR></KeyRate></diffgram></Envelope>`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(t, handler).GetKeyRate(context.Background())
			assert.Error(t, err)
		})
	}
}
