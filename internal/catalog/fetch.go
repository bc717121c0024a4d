package catalog

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher downloads remote catalog files over HTTP(S) or FTP.
type Fetcher struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter // optional; bounds request rate against the host
	Timeout    time.Duration // FTP dial timeout; default 30s
}

// Fetch downloads rawURL to dest, choosing the transport from the URL
// scheme. Returns bytes written.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, eris.Wrap(err, "catalog: parse url")
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return 0, eris.Wrap(err, "catalog: rate limit wait")
		}
	}

	var rc io.ReadCloser
	switch u.Scheme {
	case "http", "https":
		rc, err = f.openHTTP(ctx, rawURL)
	case "ftp":
		rc, err = f.openFTP(ctx, u)
	default:
		return 0, eris.Errorf("catalog: unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrapf(err, "catalog: create %s", dest)
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, rc)
	if err != nil {
		return n, eris.Wrap(err, "catalog: write download")
	}

	zap.L().Info("catalog fetched",
		zap.String("url", rawURL),
		zap.String("dest", dest),
		zap.Int64("bytes", n),
	)
	return n, nil
}

func (f *Fetcher) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: download")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return nil, eris.Errorf("catalog: download returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *Fetcher) openFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return nil, eris.New("catalog: empty path in ftp url")
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "catalog: ftp dial")
	}
	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "catalog: ftp login")
	}
	resp, err := conn.Retr(u.Path)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "catalog: ftp retrieve")
	}
	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// ftpConnReader ties the FTP data connection lifetime to the reader so a
// single Close releases both.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "catalog: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "catalog: quit ftp connection")
	}
	return nil
}
