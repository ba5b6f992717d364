package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "remotelab.xml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadParsesServicesAndAuth(t *testing.T) {
	path := writeCatalog(t, `
<endpoints>
  <option name="lab-a">
    <url>http://lab-a.example.com</url>
    <auth>sha-256</auth>
  </option>
  <option name="lab-b">
    <url>http://lab-b.example.com/</url>
    <auth>plain</auth>
  </option>
</endpoints>`)

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	svcs := r.Services()
	if len(svcs) != 2 {
		t.Fatalf("len(svcs) = %d, want 2", len(svcs))
	}
	a, ok := r.Lookup("lab-a")
	if !ok {
		t.Fatal("lab-a not found")
	}
	if a.BaseURL != "http://lab-a.example.com/" {
		t.Fatalf("BaseURL = %q, want trailing slash added", a.BaseURL)
	}
	if a.Auth != AuthSHA256 {
		t.Fatalf("Auth = %v, want AuthSHA256 (sha-256 alias)", a.Auth)
	}

	b, _ := r.Lookup("lab-b")
	if b.Auth != AuthPlain {
		t.Fatalf("Auth = %v, want AuthPlain", b.Auth)
	}
}

func TestLoadUnknownAuthIsNone(t *testing.T) {
	path := writeCatalog(t, `
<endpoints>
  <option name="lab-c">
    <url>http://lab-c.example.com</url>
    <auth>bogus</auth>
  </option>
</endpoints>`)

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, _ := r.Lookup("lab-c")
	if c.Auth != AuthNone {
		t.Fatalf("Auth = %v, want AuthNone", c.Auth)
	}
}

func TestLoadMissingFileDisablesDevice(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "missing.xml"))
	if err == nil {
		t.Fatal("expected ConfigMissing error")
	}
	if len(r.Services()) != 0 {
		t.Fatalf("expected empty registry, got %d services", len(r.Services()))
	}
}

func TestLoadMalformedCatalogDisablesDevice(t *testing.T) {
	path := writeCatalog(t, `not xml at all <<<`)
	r, err := Load(path)
	if err == nil {
		t.Fatal("expected ConfigMissing error")
	}
	if len(r.Services()) != 0 {
		t.Fatalf("expected empty registry, got %d services", len(r.Services()))
	}
}
