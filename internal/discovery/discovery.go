// Package discovery implements the HTTP discovery/auth channel: service
// status polling and credential submission, separate from the binary
// session channel in internal/devsession.
//
// Modeled on the teacher's discovery.Scanner (periodic refresh feeding an
// OnChange callback), but driven by explicit calls rather than a
// long-lived watch stream — there is no server-push status channel in this
// domain, only point-in-time polls issued by the caller (before login, and
// whenever the host lists services). Nothing here polls on a timer.
package discovery

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"remotelab/internal/errs"
	"remotelab/internal/registry"
)

const (
	statusTimeout = 1500 * time.Millisecond
	loginTimeout  = 20 * time.Second

	// MajorRemoteVersion is this client's protocol major version, compared
	// against the service's reported version before login.
	MajorRemoteVersion = 1
)

// StatusResponse is the JSON document returned by GET <url>/.
type StatusResponse struct {
	Version           string         `json:"version"`
	Status            string         `json:"status"`
	UptimeSeconds      int64          `json:"uptime"`
	Devices           map[string]int `json:"devices"`
	DevicesAmount     map[string]int `json:"devicesAmount"`
	DevicesAvailable  map[string]int `json:"devicesAvailable"`
	Methods           map[string]int `json:"methods"`
}

// LoginResult is the parsed outcome of POST <url>/login.
type LoginResult struct {
	Host          string
	Port          int
	Token         string
	FailureReason string
}

type loginReply struct {
	Reply string `json:"reply"`
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"token"`
	Msg   string `json:"msg"`
}

// Client issues the four HTTP calls (status, logo, method, login) against
// one service.
type Client struct {
	http *http.Client
}

// NewClient builds a discovery client. A single http.Client is shared; the
// differing timeouts (1.5s status calls, 20s login) are applied per-call
// via context deadlines rather than the client's own Timeout field, since
// one http.Client can't carry two fixed timeouts.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errs.Wrap(errs.NetworkError, "http request", err)
	}
	return resp, nil
}

// Status fetches GET <url>/.
func (c *Client) Status(ctx context.Context, svc registry.Service) (StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, svc.BaseURL, nil)
	if err != nil {
		return StatusResponse{}, errs.Wrap(errs.NetworkError, "build status request", err)
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return StatusResponse{}, err
	}
	defer resp.Body.Close()

	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return StatusResponse{}, errs.Wrap(errs.NetworkError, "decode status", err)
	}
	return out, nil
}

// Logo fetches GET <url>/logo image bytes.
func (c *Client) Logo(ctx context.Context, svc registry.Service) ([]byte, error) {
	return c.getBytes(ctx, svc.BaseURL+"logo", nil)
}

// Method fetches GET <url>/method image bytes, form-encoded token+deviceId.
func (c *Client) Method(ctx context.Context, svc registry.Service, token string, deviceID int) ([]byte, error) {
	form := url.Values{"token": {token}, "deviceId": {strconv.Itoa(deviceID)}}
	return c.getBytes(ctx, svc.BaseURL+"method", form)
}

func (c *Client) getBytes(ctx context.Context, target string, form url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	if form != nil {
		target += "?" + form.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Wrap(errs.NetworkError, "build request", err)
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, rerr := resp.Body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

// HashPassword hashes passwd per the service's auth method: Plain is sent
// as-is, otherwise lowercase-hex of the digest.
func HashPassword(method registry.AuthMethod, passwd string) string {
	switch method {
	case registry.AuthPlain:
		return passwd
	case registry.AuthMD5:
		sum := md5.Sum([]byte(passwd))
		return hex.EncodeToString(sum[:])
	case registry.AuthSHA1:
		sum := sha1.Sum([]byte(passwd))
		return hex.EncodeToString(sum[:])
	case registry.AuthSHA256:
		sum := sha256.Sum256([]byte(passwd))
		return hex.EncodeToString(sum[:])
	default:
		return passwd
	}
}

// ParseMajorVersion extracts the major version number from a string like
// "v1.2.3" or "1.2.3". A single leading non-digit prefix character is
// tolerated and skipped.
func ParseMajorVersion(version string) (int, error) {
	s := version
	if len(s) > 0 && (s[0] < '0' || s[0] > '9') {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	if dot == -1 {
		dot = len(s)
	}
	if dot == 0 {
		return 0, fmt.Errorf("discovery: cannot parse major version from %q", version)
	}
	return strconv.Atoi(s[:dot])
}

// CheckVersion enforces the version gate: the major version of the
// service's reported version must match this client's.
func CheckVersion(serviceVersion string) error {
	major, err := ParseMajorVersion(serviceVersion)
	if err != nil {
		return errs.Wrap(errs.VersionIncompatible, "parse service version", err)
	}
	if major != MajorRemoteVersion {
		return errs.New(errs.VersionIncompatible,
			fmt.Sprintf("service major version %d incompatible with client major version %d", major, MajorRemoteVersion))
	}
	return nil
}

// Login submits credentials. The version gate must be checked by the
// caller before calling Login — CheckVersion does not POST.
func (c *Client) Login(ctx context.Context, svc registry.Service, login, passwd string) (LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	hashed := HashPassword(svc.Auth, passwd)
	form := url.Values{"login": {login}, "passwd": {hashed}}

	req, err := http.NewRequest(http.MethodPost, svc.BaseURL+"login", strings.NewReader(form.Encode()))
	if err != nil {
		return LoginResult{}, errs.Wrap(errs.NetworkError, "build login request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(ctx, req)
	if err != nil {
		return LoginResult{}, err
	}
	defer resp.Body.Close()

	var reply loginReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return LoginResult{}, errs.Wrap(errs.NetworkError, "decode login reply", err)
	}

	if reply.Reply != "ok" {
		return LoginResult{}, errs.New(errs.AuthFailure, reply.Msg)
	}

	host, err := ResolveHost(reply.Host, svc.BaseURL)
	if err != nil {
		return LoginResult{}, errs.Wrap(errs.NetworkError, "resolve gateway host", err)
	}

	return LoginResult{Host: host, Port: reply.Port, Token: reply.Token}, nil
}

// ResolveHost implements the host resolution rule: "0.0.0.0" means "use
// the service URL's own host"; anything else is DNS-resolved to an A
// record.
func ResolveHost(host, serviceURL string) (string, error) {
	if host == "0.0.0.0" {
		u, err := url.Parse(serviceURL)
		if err != nil {
			return "", err
		}
		return u.Hostname(), nil
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	log.Warnf("discovery: no A record for %s, using literal host", host)
	return host, nil
}
