package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
)

// Fingerprint computes the content hash of a raw upload: SHA-256 over the
// exact bytes received on the wire, hex-encoded. Byte-identical uploads
// always map to the same hash and therefore the same key family.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DerivativeKey builds the storage key of a derivative. The key is the only
// addressing scheme: there is no index or manifest, existence of the key in
// the store is the source of truth.
//
//	scale == 1: {hash}.{ext}
//	scale  > 1: {hash}_{scale}x.{ext}
func DerivativeKey(hash string, scale int, ext string) string {
	if scale == 1 {
		return fmt.Sprintf("%s.%s", hash, ext)
	}
	return fmt.Sprintf("%s_%dx.%s", hash, scale, ext)
}

// RequestKeyParts is a derivative request path decoded back into its parts.
type RequestKeyParts struct {
	Hash  string
	Scale int
	Ext   string
}

var reqPathRe = regexp.MustCompile(`^/(?P<hash>[0-9a-f]{64})(_(?P<scale>[0-9]+)x)?\.(?P<ext>[a-z]+)$`)

// ParseRequestPath matches a request path against the derivative key
// pattern: leading slash, 64 lowercase hex chars, optional _<digits>x scale
// suffix (default 1), a dot and a lowercase extension. Returns nil when the
// path doesn't match. The scale is not bounded here; bound checking (if any)
// happens downstream.
func ParseRequestPath(path string) *RequestKeyParts {
	m := reqPathRe.FindStringSubmatch(path)
	if m == nil {
		return nil
	}

	scale := 1
	if s := m[reqPathRe.SubexpIndex("scale")]; s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		scale = parsed
	}

	return &RequestKeyParts{
		Hash:  m[reqPathRe.SubexpIndex("hash")],
		Scale: scale,
		Ext:   m[reqPathRe.SubexpIndex("ext")],
	}
}
