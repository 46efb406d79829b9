package keypackage

import (
	"fmt"
	"log/slog"
	"time"

	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/codec"
	"xdao.co/keypackage/compliance"
	"xdao.co/keypackage/credential"
	"xdao.co/keypackage/extensions"
)

// Decoder decodes received key packages.
//
// Key packages under a supported suite are verified as part of decoding; a
// verification failure is logged with the full key package and reported as a
// generic codec.ErrDecoding, indistinguishable from malformed input. Callers
// that need the reason should call VerifyAt on a key package they built
// themselves.
//
// Unsupported suite policy: a key package whose suite is registered but cannot
// verify signatures (ciphersuite.CarveOut) is accepted in Permissive mode with
// an empty signature and without any verification. Its signature field is not
// read. Strict mode rejects such key packages instead.
type Decoder struct {
	Registry *ciphersuite.Registry
	// Extensions dispatches extension bodies; nil uses extensions.NewTable().
	Extensions *extensions.Table
	Mode       compliance.ComplianceMode
	// Logger receives verification failures; nil uses slog.Default().
	Logger *slog.Logger
	// Now is read once per verification; nil uses time.Now.
	Now func() time.Time
}

// NewDecoder returns a permissive decoder over reg.
func NewDecoder(reg *ciphersuite.Registry) *Decoder {
	return &Decoder{Registry: reg, Extensions: extensions.NewTable()}
}

// Unmarshal decodes a key package from b using a permissive decoder over reg.
func Unmarshal(reg *ciphersuite.Registry, b []byte) (*KeyPackage, error) {
	return NewDecoder(reg).Unmarshal(b)
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Decoder) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Decoder) table() *extensions.Table {
	if d.Extensions != nil {
		return d.Extensions
	}
	return extensions.NewTable()
}

// Unmarshal decodes exactly one key package from b. Trailing bytes are
// rejected, except for unsupported suites whose unread signature field is
// discarded.
func (d *Decoder) Unmarshal(b []byte) (*KeyPackage, error) {
	r := codec.NewReader(b)
	kp, err := d.Decode(r)
	if err != nil {
		return nil, err
	}
	if !kp.suite.Supported() {
		return kp, nil
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return kp, nil
}

// Decode reads one key package from r.
func (d *Decoder) Decode(r *codec.Reader) (*KeyPackage, error) {
	if d.Registry == nil {
		return nil, fmt.Errorf("keypackage: decoder has no ciphersuite registry")
	}
	version, err := ciphersuite.DecodeProtocolVersion(r)
	if err != nil {
		return nil, err
	}
	name, err := ciphersuite.DecodeName(r)
	if err != nil {
		return nil, err
	}
	initKey, err := r.ReadOpaque16()
	if err != nil {
		return nil, err
	}
	cred, err := credential.Decode(r)
	if err != nil {
		return nil, err
	}
	exts, err := d.table().DecodeList(r)
	if err != nil {
		return nil, err
	}
	cs, err := d.Registry.Lookup(name)
	if err != nil {
		return nil, codec.Wrap(codec.KindMalformed, "KP-DEC-003", "ciphersuite not registered", err)
	}

	kp := &KeyPackage{
		version:     version,
		suiteName:   name,
		suite:       cs,
		hpkeInitKey: initKey,
		credential:  cred,
		extensions:  exts,
	}

	if !cs.Supported() {
		if !d.Mode.AllowUnverifiedSuites() {
			return nil, codec.Malformed("KP-DEC-004", fmt.Sprintf("ciphersuite %s cannot be verified", name))
		}
		d.logger().Debug("accepting key package without verification",
			slog.String("ciphersuite", name.String()))
		return kp, nil
	}

	kp.signature, err = r.ReadOpaque16()
	if err != nil {
		return nil, err
	}
	if err := kp.VerifyAt(d.now()); err != nil {
		d.logger().Error("key package verification failed after decoding",
			slog.Any("key_package", kp),
			slog.String("error", err.Error()))
		return nil, codec.Decoding("KP-DEC-001", "key package verification failed")
	}
	return kp, nil
}
