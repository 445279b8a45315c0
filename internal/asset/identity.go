package asset

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/zeebo/blake3"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// IDLength is the length of every AssetID.
//
// 16 hex characters carry 64 bits; the chance of any collision among n
// distinct definitions is roughly n²/2^65, about 3e-8 for a million assets.
const IDLength = 16

// DefaultProducer tags definitions created by the blueprint constructor. It is
// part of the identity tuple so other producers get disjoint ids.
const DefaultProducer = "asset.blueprint"

type domainKey [32]byte

// Keys are the ASCII domain name zero-padded to 32 bytes.
var (
	identityDomainKey = domainKey{
		'a', 's', 's', 'e', 't', 'p', 'i', 'p', 'e', '.', 'a', 's', 's', 'e', 't', '.',
		'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	versionDomainKey = domainKey{
		'a', 's', 's', 'e', 't', 'p', 'i', 'p', 'e', '.', 'a', 's', 's', 'e', 't', '.',
		'v', 'e', 'r', 's', 'i', 'o', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	fingerprintDomainKey = domainKey{
		'a', 's', 's', 'e', 't', 'p', 'i', 'p', 'e', '.', 's', 'o', 'u', 'r', 'c', 'e',
		'.', 'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0,
	}
)

func newKeyedHasher(key domainKey) *blake3.Hasher {
	// NewKeyed only fails on a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("asset: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// writeField writes a length-prefixed field so ("ab","c") and ("a","bc")
// hash differently.
func writeField(h hash.Hash, field string) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(field)))
	_, _ = h.Write(length[:])
	_, _ = h.Write([]byte(field))
}

func shortHex(h hash.Hash) string {
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:IDLength/2])
}

// ComputeID derives the AssetID from the identity tuple. Every element,
// including source order, contributes. A result that is not IDLength
// alphanumeric characters is a programming error and panics.
func ComputeID(producer, name string, t Type, kind SourceKind, sources ...string) string {
	h := newKeyedHasher(identityDomainKey)
	writeField(h, producer)
	writeField(h, name)
	writeField(h, string(t))
	writeField(h, string(kind))
	for _, src := range sources {
		writeField(h, src)
	}
	id := shortHex(h)
	if !IsValidID(id) {
		foundationerrors.IdentityInvariantViolation(id)
	}
	return id
}

// ContentVersion digests built output bytes into a cache-busting version.
func ContentVersion(content []byte) string {
	h := newKeyedHasher(versionDomainKey)
	_, _ = h.Write(content)
	return shortHex(h)
}

// SourceStamp is the part of a source file that decides freshness.
type SourceStamp struct {
	Path    string
	Size    int64
	ModTime int64 // UnixNano
}

// Fingerprint digests source stamps in order. A changed size or mtime on any
// source changes the fingerprint.
func Fingerprint(stamps []SourceStamp) string {
	h := newKeyedHasher(fingerprintDomainKey)
	var buf [16]byte
	for _, s := range stamps {
		writeField(h, s.Path)
		binary.BigEndian.PutUint64(buf[:8], uint64(s.Size))
		binary.BigEndian.PutUint64(buf[8:], uint64(s.ModTime))
		_, _ = h.Write(buf[:])
	}
	return shortHex(h)
}

// IsValidID reports whether id is exactly IDLength ASCII letters or digits.
func IsValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

// ValidateID checks an explicitly supplied id.
func ValidateID(id string) error {
	if IsValidID(id) {
		return nil
	}
	return foundationerrors.ValidationError("explicit asset id must be 16 alphanumeric characters").
		WithContext("asset_id", id).
		Build()
}
