package discovery

import (
	"testing"

	"remotelab/internal/registry"
)

func TestHashPasswordPlainPassesThrough(t *testing.T) {
	if got := HashPassword(registry.AuthPlain, "secret"); got != "secret" {
		t.Fatalf("got %q, want secret", got)
	}
}

func TestHashPasswordSHA256IsLowercaseHex(t *testing.T) {
	got := HashPassword(registry.AuthSHA256, "secret")
	want := "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseMajorVersionWithLeadingPrefix(t *testing.T) {
	major, err := ParseMajorVersion("v1.2.3")
	if err != nil {
		t.Fatalf("ParseMajorVersion: %v", err)
	}
	if major != 1 {
		t.Fatalf("major = %d, want 1", major)
	}
}

func TestParseMajorVersionWithoutPrefix(t *testing.T) {
	major, err := ParseMajorVersion("2.0.0")
	if err != nil {
		t.Fatalf("ParseMajorVersion: %v", err)
	}
	if major != 2 {
		t.Fatalf("major = %d, want 2", major)
	}
}

func TestCheckVersionMismatch(t *testing.T) {
	if err := CheckVersion("v9.0.0"); err == nil {
		t.Fatal("expected VersionIncompatible error")
	}
}

func TestCheckVersionMatch(t *testing.T) {
	if err := CheckVersion("v1.4.0"); err != nil {
		t.Fatalf("CheckVersion: %v", err)
	}
}

func TestResolveHostZeroAddressUsesServiceURL(t *testing.T) {
	host, err := ResolveHost("0.0.0.0", "http://lab.example.com/")
	if err != nil {
		t.Fatalf("ResolveHost: %v", err)
	}
	if host != "lab.example.com" {
		t.Fatalf("host = %q, want lab.example.com", host)
	}
}
