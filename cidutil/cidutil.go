// Package cidutil derives content identifiers for encoded key packages so
// they can be referenced and deduplicated by directories that hand them out.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Of returns the CIDv1 (raw codec, sha2-256 multihash) of data.
func Of(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String is Of rendered in the default multibase.
func String(data []byte) (string, error) {
	c, err := Of(data)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// Matches reports whether want identifies data.
func Matches(want string, data []byte) (bool, error) {
	w, err := cid.Decode(want)
	if err != nil {
		return false, fmt.Errorf("cidutil: parse %q: %w", want, err)
	}
	got, err := Of(data)
	if err != nil {
		return false, err
	}
	return w.Equals(got), nil
}
