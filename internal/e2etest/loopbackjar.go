package e2etest

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/myrjola/ace/internal/errors"
)

// loopbackJar is a cookie jar that also keeps Secure cookies set by plain HTTP servers on the loopback interface.
// The CSRF cookie is always Secure, and the test server does not speak TLS.
type loopbackJar struct {
	*cookiejar.Jar
}

func newLoopbackJar() (*loopbackJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &loopbackJar{Jar: jar}, nil
}

func (j *loopbackJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u.Scheme == "http" && isLoopback(u.Hostname()) {
		for _, c := range cookies {
			c.Secure = false
		}
	}
	j.Jar.SetCookies(u, cookies)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
