package dict

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/geodict/pkg/defs"
)

func newEllipsoidFile(t *testing.T) *File[defs.ElDef] {
	t.Helper()
	path := filepath.Join(t.TempDir(), defs.KindEl.FileName())
	f, err := Create(path, defs.ElCodec{}, WithRand(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func ellipsoid(name string, eRad float64) *defs.ElDef {
	return &defs.ElDef{KeyName: name, ERad: eRad, PRad: eRad * 0.99, Protect: 0}
}

func keys(t *testing.T, f *File[defs.ElDef]) []string {
	t.Helper()
	var out []string
	if err := f.Each(func(_ int64, rec *defs.ElDef) error {
		out = append(out, rec.KeyName)
		return nil
	}); err != nil {
		t.Fatalf("each: %v", err)
	}
	return out
}

func TestUpdateKeepsSortOrder(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	for i, name := range []string{"WGS84", "clarke1866", "Airy", "bessel", "GRS1980"} {
		res, err := f.Update(ellipsoid(name, 6378000+float64(i)), i%2 == 0, nil)
		if err != nil {
			t.Fatalf("update %s: %v", name, err)
		}
		if res != Added {
			t.Fatalf("update %s: got %v want added", name, res)
		}
	}
	got := keys(t, f)
	want := []string{"Airy", "bessel", "clarke1866", "GRS1980", "WGS84"}
	if len(got) != len(want) {
		t.Fatalf("keys: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys[%d]: got %q want %q", i, got[i], want[i])
		}
	}
	if err := f.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestUpdateReplacesIgnoringCase(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	if _, err := f.Update(ellipsoid("WGS84", 6378137), true, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	res, err := f.Update(ellipsoid("wgs84", 6378138), true, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res != Updated {
		t.Fatalf("result: got %v want updated", res)
	}
	n, err := f.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count: got %d want 1", n)
	}
	rec, err := f.Lookup("WGS84")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.ERad != 6378138 || rec.KeyName != "wgs84" {
		t.Fatalf("lookup: got %+v", rec)
	}
}

func TestEncryptedRecordRoundTrip(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	want := ellipsoid("Clarke1880", 6378249.145)
	want.Description = "Clarke 1880 (RGS)"
	if err := f.Write(want, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := make([]byte, f.Codec().Size())
	if err := f.readRaw(magicSize, raw); err != nil {
		t.Fatalf("read raw: %v", err)
	}
	key := raw[f.Codec().FillOffset()]
	if key == 0 {
		t.Fatalf("fill byte: want non-zero key")
	}
	if raw[0] == 'C' {
		t.Fatalf("first byte stored in the clear")
	}
	if bytes.Contains(raw, []byte("Clarke")) {
		t.Fatalf("key name stored in the clear")
	}

	got, err := f.ReadAt(magicSize)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != *want {
		t.Fatalf("round trip: got %+v want %+v", got, *want)
	}
}

func TestPlainRecordHasZeroFill(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	if err := f.Write(ellipsoid("Airy", 6377563.396), false); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := make([]byte, f.Codec().Size())
	if err := f.readRaw(magicSize, raw); err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if raw[f.Codec().FillOffset()] != 0 {
		t.Fatalf("fill byte: got %d want 0", raw[f.Codec().FillOffset()])
	}
	if !bytes.HasPrefix(raw, []byte("Airy\x00")) {
		t.Fatalf("key name: got %q", raw[:8])
	}
}

func TestObfuscateRoundTrip(t *testing.T) {
	t.Parallel()

	plain := []byte("NAD27\x00\x00\x00\x00\x00more record bytes")
	for _, key := range []byte{1, 0x5a, 0xff} {
		buf := append([]byte(nil), plain...)
		obfuscate(buf, 5, key)
		if buf[5] != key {
			t.Fatalf("key %#x: fill byte %#x", key, buf[5])
		}
		deobfuscate(buf, 5)
		if !bytes.Equal(buf, plain) {
			t.Fatalf("key %#x: got %q want %q", key, buf, plain)
		}
	}
}

func TestSearchMissingKey(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	for _, name := range []string{"A", "C", "E"} {
		if _, err := f.Update(ellipsoid(name, 6378000), true, nil); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	pos, err := f.Search("c")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if pos != f.offset(1) {
		t.Fatalf("search: got offset %d want %d", pos, f.offset(1))
	}
	_, err = f.Search("D")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("search D: got %v want ErrNotFound", err)
	}
	var re *RecordError
	if !errors.As(err, &re) || re.Key != "D" || re.Op != "search" {
		t.Fatalf("search D: got %#v", err)
	}
}

func TestOpenRejectsBadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := defs.ElCodec{}

	wrongMagic := filepath.Join(dir, "wrong.CSD")
	if err := os.WriteFile(wrongMagic, []byte{0x31, 0x44, 0x54, 0x44}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(wrongMagic, codec, ReadOnly); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("wrong magic: got %v want ErrBadMagic", err)
	}

	short := filepath.Join(dir, "short.CSD")
	if err := os.WriteFile(short, []byte{0x31}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(short, codec, ReadOnly); !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("short: got %v want ErrInvalidFile", err)
	}

	ragged := filepath.Join(dir, "ragged.CSD")
	f, err := Create(ragged, codec)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Write(ellipsoid("Airy", 6377563.396), false); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()
	fh, err := os.OpenFile(ragged, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	_, _ = fh.Write([]byte{0})
	_ = fh.Close()
	if _, err := Open(ragged, codec, ReadOnly); !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("ragged: got %v want ErrInvalidFile", err)
	}

	if _, err := Open(filepath.Join(dir, "missing.CSD"), codec, ReadOnly); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing: got %v want ErrNotExist", err)
	}
}

func TestDeleteRewritesFile(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	for _, name := range []string{"Airy", "Bessel", "Clarke"} {
		if _, err := f.Update(ellipsoid(name, 6378000), true, nil); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if err := f.Delete("bessel", nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := keys(t, f)
	if len(got) != 2 || got[0] != "Airy" || got[1] != "Clarke" {
		t.Fatalf("keys after delete: %v", got)
	}
	raw := make([]byte, f.Codec().Size())
	if err := f.readRaw(f.offset(1), raw); err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if raw[f.Codec().FillOffset()] == 0 {
		t.Fatalf("surviving record lost its obfuscation")
	}

	if err := f.Delete("Bessel", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v want ErrNotFound", err)
	}
	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory holds %d entries, want only the dictionary", len(entries))
	}
}

func TestGuardVetoesMutation(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	if _, err := f.Update(ellipsoid("Airy", 6377563.396), false, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	veto := errors.New("protected")
	var seen []*defs.ElDef
	guard := func(existing *defs.ElDef) error {
		seen = append(seen, existing)
		return veto
	}

	res, err := f.Update(ellipsoid("AIRY", 1), false, guard)
	if !errors.Is(err, veto) || res != Failed {
		t.Fatalf("update: got %v, %v", res, err)
	}
	if _, err := f.Update(ellipsoid("New", 1), false, guard); !errors.Is(err, veto) {
		t.Fatalf("add: got %v", err)
	}
	if err := f.Delete("Airy", guard); !errors.Is(err, veto) {
		t.Fatalf("delete: got %v", err)
	}
	if len(seen) != 3 || seen[0] == nil || seen[1] != nil || seen[2] == nil {
		t.Fatalf("guard calls: %v", seen)
	}
	rec, err := f.Lookup("airy")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.ERad != 6377563.396 {
		t.Fatalf("record changed: %+v", rec)
	}
	if n, _ := f.Count(); n != 1 {
		t.Fatalf("count: got %d want 1", n)
	}
}

func TestReadOnlyRefusesWrites(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	if _, err := f.Update(ellipsoid("Airy", 6377563.396), true, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	path := f.Path()
	_ = f.Close()

	ro, err := Open(path, defs.ElCodec{}, ReadOnly)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ro.Close()
	if _, err := ro.Update(ellipsoid("Bessel", 6377397.155), true, nil); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("update: got %v want ErrReadOnly", err)
	}
	if err := ro.Delete("Airy", nil); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("delete: got %v want ErrReadOnly", err)
	}
	if _, err := ro.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := ro.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("next at end: got %v want EOF", err)
	}
}

func TestFieldTooLongIsRejected(t *testing.T) {
	t.Parallel()

	f := newEllipsoidFile(t)
	rec := ellipsoid("Airy", 6377563.396)
	rec.Description = string(bytes.Repeat([]byte("x"), defs.DescWidth))
	if _, err := f.Update(rec, false, nil); !errors.Is(err, defs.ErrFieldTooLong) {
		t.Fatalf("update: got %v want ErrFieldTooLong", err)
	}
	if n, _ := f.Count(); n != 0 {
		t.Fatalf("count: got %d want 0", n)
	}
}
