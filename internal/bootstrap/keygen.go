package bootstrap

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	mdns "github.com/miekg/dns"
)

const keySize = 32

var (
	secretPattern    = regexp.MustCompile(`secret "(.*)";`)
	algorithmPattern = regexp.MustCompile(`algorithm ([A-Za-z0-9.-]+);`)
)

// Key is a TSIG key shared between the nameserver and this client.
type Key struct {
	Name      string
	Algorithm string // e.g. hmac-sha256.
	Secret    string // base64
}

// GenerateKey creates a fresh hmac-sha256 key named name, the same shape
// tsig-keygen produces.
func GenerateKey(name string) (Key, error) {
	buf := make([]byte, keySize)
	if _, err := rand.Read(buf); err != nil {
		return Key{}, fmt.Errorf("generating TSIG secret: %w", err)
	}
	return Key{
		Name:      name,
		Algorithm: mdns.HmacSHA256,
		Secret:    base64.StdEncoding.EncodeToString(buf),
	}, nil
}

// String renders the key as a named.conf key statement.
func (k Key) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "key \"%s\" {\n", k.Name)
	fmt.Fprintf(&b, "\talgorithm %s;\n", strings.TrimSuffix(k.Algorithm, "."))
	fmt.Fprintf(&b, "\tsecret \"%s\";\n", k.Secret)
	fmt.Fprintf(&b, "};\n")
	return b.String()
}

// ParseKey reads back a key statement written by String or tsig-keygen.
func ParseKey(name string, data []byte) (Key, error) {
	m := secretPattern.FindSubmatch(data)
	if m == nil {
		return Key{}, fmt.Errorf("no secret found in key file for %q", name)
	}
	k := Key{Name: name, Algorithm: mdns.HmacSHA256, Secret: string(m[1])}
	if a := algorithmPattern.FindSubmatch(data); a != nil {
		k.Algorithm = mdns.Fqdn(strings.ToLower(string(a[1])))
	}
	if _, err := base64.StdEncoding.DecodeString(k.Secret); err != nil {
		return Key{}, fmt.Errorf("key file for %q: secret is not base64: %w", name, err)
	}
	return k, nil
}
