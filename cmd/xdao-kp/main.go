package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xdao.co/keypackage/cidutil"
	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/compliance"
	"xdao.co/keypackage/config"
	"xdao.co/keypackage/credential"
	"xdao.co/keypackage/extensions"
	"xdao.co/keypackage/keypackage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "suites":
		return cmdSuites(args[1:], out, errOut)
	case "generate":
		return cmdGenerate(args[1:], out, errOut)
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-kp: generate and inspect key packages")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-kp suites")
	fmt.Fprintln(w, "  xdao-kp generate --identity <id> [--suite <name> ...] [--scheme <name>] [--seed-hex <64hex> [--device <d>]] [--lifetime <dur>] [--key-id <hex>] [--config <file>] [--priv-out <file> [--force]]")
	fmt.Fprintln(w, "  xdao-kp inspect [--strict] [--verbose] <file>")
	fmt.Fprintln(w, "  xdao-kp cid [--check <CID>] <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - generate writes the hex-encoded key package to stdout (no trailing newline)")
	fmt.Fprintln(w, "  - --seed-hex derives an ed25519 credential; --device derives a per-device seed from it")
	fmt.Fprintln(w, "  - --priv-out writes the hex HPKE private init key with 0600 permissions")
	fmt.Fprintln(w, "  - inspect and cid accept raw or hex-encoded key packages")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdSuites(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("suites", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, cs := range ciphersuite.NewRegistry().All() {
		status := "supported"
		if !cs.Supported() {
			status = "unverified"
		}
		fmt.Fprintf(out, "0x%04x %s %s %s\n", uint16(cs.Name()), cs.Name(), cs.SignatureScheme(), status)
	}
	return 0
}

func cmdGenerate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var identity, schemeName, seedHex, device, lifetime, keyIDHex, configPath, privOut string
	var force bool
	var suites stringList

	fs.StringVar(&identity, "identity", "", "Credential identity (UTF-8)")
	fs.Var(&suites, "suite", "Candidate ciphersuite name (repeatable, preference order)")
	fs.StringVar(&schemeName, "scheme", "", "Signature scheme (default: scheme of the first suite)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars")
	fs.StringVar(&device, "device", "", "Derive a per-device seed from --seed-hex")
	fs.StringVar(&lifetime, "lifetime", "", "Lifetime extension duration (e.g. 720h)")
	fs.StringVar(&keyIDHex, "key-id", "", "KeyID extension as hex")
	fs.StringVar(&configPath, "config", "", "JSON generation config")
	fs.StringVar(&privOut, "priv-out", "", "Write the private init key (hex) to this file")
	fs.BoolVar(&force, "force", false, "Overwrite --priv-out")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if identity == "" {
		fmt.Fprintln(errOut, "missing --identity")
		return 2
	}

	var cfg config.Config
	if configPath != "" {
		var err error
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --config: %v\n", err)
			return 2
		}
	}
	// Flags override the config file.
	if len(suites) > 0 {
		cfg.Ciphersuites = suites
	}
	if len(cfg.Ciphersuites) == 0 {
		cfg.Ciphersuites = []string{ciphersuite.MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519.String()}
	}
	if schemeName != "" {
		cfg.SignatureScheme = schemeName
	}
	if lifetime != "" {
		cfg.Lifetime = lifetime
	}
	if keyIDHex != "" {
		cfg.KeyID = keyIDHex
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "invalid options: %v\n", err)
		return 2
	}

	reg := ciphersuite.NewRegistry()
	names, err := cfg.CiphersuiteNames()
	if err != nil {
		fmt.Fprintf(errOut, "invalid --suite: %v\n", err)
		return 2
	}
	exts, err := cfg.Extensions()
	if err != nil {
		fmt.Fprintf(errOut, "invalid extensions: %v\n", err)
		return 2
	}

	var cb *credential.Bundle
	if seedHex != "" {
		seed, err := credential.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
		if device != "" {
			seed, err = credential.DeriveDeviceSeed(seed, device)
			if err != nil {
				fmt.Fprintf(errOut, "invalid --device: %v\n", err)
				return 2
			}
		}
		cb, err = credential.NewBundleFromSeed([]byte(identity), seed)
		if err != nil {
			fmt.Fprintf(errOut, "credential: %v\n", err)
			return 1
		}
	} else {
		scheme, err := cfg.Scheme(reg)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --scheme: %v\n", err)
			return 2
		}
		cb, err = credential.NewBundleWithRand([]byte(identity), credential.Basic, scheme, rand.Reader)
		if err != nil {
			fmt.Fprintf(errOut, "credential: %v\n", err)
			return 1
		}
	}

	kpb, err := keypackage.NewBundle(reg, names, cb, exts)
	if err != nil {
		fmt.Fprintf(errOut, "generate: %v\n", err)
		return 1
	}
	enc, err := kpb.KeyPackage().Marshal()
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	if privOut != "" {
		if err := writeSecret(privOut, []byte(hex.EncodeToString(kpb.PrivateKey())+"\n"), force); err != nil {
			fmt.Fprintf(errOut, "write --priv-out: %v\n", err)
			return 1
		}
	}
	_, _ = fmt.Fprint(out, hex.EncodeToString(enc))
	return 0
}

func writeSecret(path string, data []byte, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Close()
}

// readKeyPackage reads raw bytes, or hex if the file is entirely hex text.
func readKeyPackage(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(b)
	if dec, err := hex.DecodeString(string(trimmed)); err == nil && len(trimmed) > 0 {
		return dec, nil
	}
	return b, nil
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var strict, verbose bool
	fs.BoolVar(&strict, "strict", false, "Reject key packages that cannot be verified")
	fs.BoolVar(&verbose, "verbose", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-kp inspect [--strict] [--verbose] <file>")
		return 2
	}
	b, err := readKeyPackage(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read key package: %v\n", err)
		return 1
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	dec := keypackage.NewDecoder(ciphersuite.NewRegistry())
	dec.Logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
	if strict {
		dec.Mode = compliance.Strict
	}
	kp, err := dec.Unmarshal(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid key package: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "Protocol-Version: %s\n", kp.ProtocolVersion())
	fmt.Fprintf(out, "Ciphersuite: %s\n", kp.CiphersuiteName())
	fmt.Fprintf(out, "Verified: %t\n", kp.Ciphersuite().Supported())
	fmt.Fprintf(out, "HPKE-Init-Key: %s\n", hex.EncodeToString(kp.HPKEInitKey()))
	fmt.Fprintf(out, "Identity: %s\n", kp.Credential().Identity)
	fmt.Fprintf(out, "Signature-Scheme: %s\n", kp.Credential().SignatureScheme)
	for _, e := range kp.Extensions() {
		fmt.Fprintf(out, "Extension: %s\n", describeExtension(e))
	}
	// Identify the input as given; an unverified suite re-encodes without
	// its signature.
	if c, err := cidutil.String(b); err == nil {
		fmt.Fprintf(out, "CID: %s\n", c)
	}
	return 0
}

func describeExtension(e extensions.Extension) string {
	switch x := e.(type) {
	case extensions.Lifetime:
		return fmt.Sprintf("lifetime %s .. %s",
			time.Unix(int64(x.NotBefore), 0).UTC().Format(time.RFC3339),
			time.Unix(int64(x.NotAfter), 0).UTC().Format(time.RFC3339))
	case extensions.KeyID:
		return "key_id " + hex.EncodeToString(x.ID)
	case extensions.ParentHash:
		return "parent_hash " + hex.EncodeToString(x.Hash)
	case extensions.Capabilities:
		return fmt.Sprintf("capabilities versions=%v ciphersuites=%v extensions=%v", x.Versions, x.Ciphersuites, x.Extensions)
	case extensions.Unknown:
		return fmt.Sprintf("%s %s", x.Type(), hex.EncodeToString(x.Data))
	default:
		return e.Type().String()
	}
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var check string
	fs.StringVar(&check, "check", "", "Expected CID; exit 1 on mismatch")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-kp cid [--check <CID>] <file>")
		return 2
	}
	b, err := readKeyPackage(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read key package: %v\n", err)
		return 1
	}
	if check != "" {
		ok, err := cidutil.Matches(check, b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --check: %v\n", err)
			return 2
		}
		if !ok {
			fmt.Fprintln(errOut, "CID mismatch")
			return 1
		}
	}
	c, err := cidutil.String(b)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, c)
	return 0
}
