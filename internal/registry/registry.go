// Package registry parses the service catalog (remotelab.xml) and exposes
// the set of configured remote-lab services. The registry is process-wide
// and read-only once loaded: callers own a single *Registry value and
// pass it by reference, rather than reaching a package-level global.
package registry

import (
	"encoding/xml"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"remotelab/internal/errs"
)

// AuthMethod identifies how a service hashes a submitted password.
type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthPlain
	AuthMD5
	AuthSHA1
	AuthSHA256
)

func (m AuthMethod) String() string {
	switch m {
	case AuthPlain:
		return "plain"
	case AuthMD5:
		return "md5"
	case AuthSHA1:
		return "sha1"
	case AuthSHA256:
		return "sha256"
	default:
		return "none"
	}
}

func parseAuthMethod(s string) AuthMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain":
		return AuthPlain
	case "md5":
		return AuthMD5
	case "sha1", "sha-1":
		return AuthSHA1
	case "sha256", "sha-256":
		return AuthSHA256
	default:
		return AuthNone
	}
}

// Service is one entry of the catalog. Immutable after Load.
type Service struct {
	Name    string
	BaseURL string
	Auth    AuthMethod
	Version string // not set by Load (the catalog carries no version); callers read the live version from the / status response
}

// catalogDoc mirrors the catalog document's XML shape:
//
//	<endpoints>
//	  <option name="...">
//	    <url>...</url>
//	    <auth>...</auth>
//	  </option>
//	</endpoints>
type catalogDoc struct {
	XMLName xml.Name      `xml:"endpoints"`
	Options []catalogItem `xml:"option"`
}

type catalogItem struct {
	Name string `xml:"name,attr"`
	URL  string `xml:"url"`
	Auth string `xml:"auth"`
}

// Registry is the process-wide, read-only set of configured services.
type Registry struct {
	byName map[string]Service
	order  []string
}

// Load parses path (the catalog document, by default "remotelab.xml" in
// the working directory). An absent or malformed catalog disables the
// device entirely: Load returns an empty, valid *Registry and a
// ConfigMissing error the caller may choose to just log.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("registry: catalog %s unavailable: %v", path, err)
		return &Registry{byName: map[string]Service{}}, errs.Wrap(errs.ConfigMissing, "read catalog", err)
	}

	var doc catalogDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		log.Warnf("registry: catalog %s malformed: %v", path, err)
		return &Registry{byName: map[string]Service{}}, errs.Wrap(errs.ConfigMissing, "parse catalog", err)
	}

	r := &Registry{byName: map[string]Service{}}
	for _, opt := range doc.Options {
		if opt.Name == "" || opt.URL == "" {
			continue
		}
		url := opt.URL
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		svc := Service{
			Name:    opt.Name,
			BaseURL: url,
			Auth:    parseAuthMethod(opt.Auth),
		}
		if _, dup := r.byName[svc.Name]; dup {
			log.Warnf("registry: duplicate service name %q, keeping first", svc.Name)
			continue
		}
		r.byName[svc.Name] = svc
		r.order = append(r.order, svc.Name)
	}

	if len(r.byName) == 0 {
		return r, errs.New(errs.ConfigMissing, "catalog contained no usable services")
	}
	return r, nil
}

// Services returns the configured services in catalog order.
func (r *Registry) Services() []Service {
	out := make([]Service, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Lookup returns the service by name.
func (r *Registry) Lookup(name string) (Service, bool) {
	svc, ok := r.byName[name]
	return svc, ok
}
