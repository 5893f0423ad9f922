// Package ftpx wraps the FTP collaborator: plain FTP against a remote
// server holding configuration files.
package ftpx

import (
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jlaffaye/ftp"
)

const dialTimeout = 10 * time.Second

// ErrUnavailable covers the 55x responses: missing file or insufficient
// permission, the server does not distinguish reliably.
var ErrUnavailable = errors.New("ftp: file not found or permission denied")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
}

type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size uint64 `json:"size"`
}

type Conn struct {
	sc *ftp.ServerConn
}

// Connect dials and authenticates. Port 0 falls back to 21.
func Connect(c Config) (*Conn, error) {
	port := c.Port
	if port == 0 {
		port = 21
	}

	sc, err := ftp.Dial(fmt.Sprintf("%s:%d", c.Host, port), ftp.DialWithTimeout(dialTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "ftp: cannot connect")
	}

	if err = sc.Login(c.User, c.Password); err != nil {
		_ = sc.Quit()
		return nil, errors.Wrap(err, "ftp: login failed")
	}

	return &Conn{sc: sc}, nil
}

func (c *Conn) List(dir string) ([]Entry, error) {
	if dir == "" {
		dir = "/"
	}

	listed, err := c.sc.List(dir)
	if err != nil {
		return nil, translate(err)
	}

	entries := make([]Entry, 0, len(listed))
	for _, e := range listed {
		entries = append(entries, Entry{
			Name: e.Name,
			Type: entryType(e.Type),
			Size: e.Size,
		})
	}
	return entries, nil
}

func (c *Conn) Download(path string) ([]byte, error) {
	response, err := c.sc.Retr(path)
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = response.Close() }()

	data, err := io.ReadAll(response)
	return data, errors.WithStack(err)
}

func (c *Conn) Upload(path string, data []byte) error {
	if err := c.sc.Stor(path, bytes.NewReader(data)); err != nil {
		return translate(err)
	}
	return nil
}

func (c *Conn) Quit() {
	_ = c.sc.Quit()
}

func entryType(t ftp.EntryType) string {
	switch t {
	case ftp.EntryTypeFolder:
		return "directory"
	case ftp.EntryTypeLink:
		return "link"
	default:
		return "file"
	}
}

func translate(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 550 && protoErr.Code < 560 {
		return errors.WithStack(ErrUnavailable)
	}
	return errors.WithStack(err)
}
