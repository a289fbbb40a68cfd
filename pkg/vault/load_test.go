package vault

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forest6511/locbox/pkg/container"
	"github.com/forest6511/locbox/pkg/crypto"
)

// testCost keeps Argon2 cheap in unit tests.
var testCost = crypto.CostParams{Iterations: 1, MemoryKiB: crypto.MinMemoryKiB}

var testSave = &SaveOptions{Cost: testCost}

func quietLoad() *LoadOptions {
	return &LoadOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func seal(t *testing.T, c *Collection, passphrase string) []byte {
	t.Helper()
	data, err := SerializeForSave(c, []byte(passphrase), testSave)
	if err != nil {
		t.Fatalf("SerializeForSave() error = %v", err)
	}
	return data
}

func sampleCollection() *Collection {
	c := NewCollection()
	c.Add("github", "alice", "p@ss1")
	c.Add("mail", "bob", "hunter2")
	c.Add("bank", "carol", "")
	c.Remove(2)
	return c
}

func TestLoadEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte("  \n\t")} {
		res, err := Load(raw, []byte("pw"), quietLoad())
		if err != nil {
			t.Fatalf("Load(%q) error = %v", raw, err)
		}
		if res.Outcome != OutcomeEmptyDefault {
			t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeEmptyDefault)
		}
		if res.Collection.NextID() != 1 || res.Collection.Len() != 0 {
			t.Errorf("Collection = next_id %d, %d records; want 1, 0", res.Collection.NextID(), res.Collection.Len())
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
	}{
		{"ascii", "correct horse battery staple"},
		{"short", "x"},
		{"unicode", "pässwörd-日本語"},
		{"with nul", "a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := sampleCollection()
			data := seal(t, orig, tt.passphrase)

			res, err := Load(data, []byte(tt.passphrase), quietLoad())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if res.Outcome != OutcomeLoaded {
				t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeLoaded)
			}
			if res.Cost != testCost {
				t.Errorf("Cost = %+v, want %+v", res.Cost, testCost)
			}
			if !reflect.DeepEqual(res.Collection.List(), orig.List()) {
				t.Errorf("List() = %+v, want %+v", res.Collection.List(), orig.List())
			}
			if res.Collection.NextID() != orig.NextID() {
				t.Errorf("NextID() = %d, want %d", res.Collection.NextID(), orig.NextID())
			}
		})
	}
}

// TestScenarioAddSaveReload: empty store, add one record, save and reload.
func TestScenarioAddSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	pass := []byte("correct123")

	res, err := LoadFile(path, pass, quietLoad())
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if res.Outcome != OutcomeEmptyDefault {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeEmptyDefault)
	}

	r, err := res.Collection.Add("github", "alice", "p@ss1")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if r.ID != 1 {
		t.Fatalf("Add() id = %d, want 1", r.ID)
	}
	if err := SaveFile(path, res.Collection, pass, testSave); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	res, err = LoadFile(path, pass, quietLoad())
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	want := []Record{{ID: 1, Service: "github", Username: "alice", Secret: "p@ss1"}}
	if !reflect.DeepEqual(res.Collection.List(), want) {
		t.Errorf("List() = %+v, want %+v", res.Collection.List(), want)
	}
}

// TestScenarioWrongPassphrase: a wrong passphrase is an error, never an empty
// store, and the file stays loadable with the right one.
func TestScenarioWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	c := NewCollection()
	c.Add("github", "alice", "p@ss1")
	if err := SaveFile(path, c, []byte("correct123"), testSave); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	res, err := LoadFile(path, []byte("wrong456"), quietLoad())
	if !errors.Is(err, ErrWrongPassphraseOrCorrupt) {
		t.Fatalf("LoadFile() error = %v, want ErrWrongPassphraseOrCorrupt", err)
	}
	if !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Errorf("LoadFile() error = %v, should wrap crypto.ErrAuthenticationFailed", err)
	}
	if res != nil {
		t.Errorf("LoadFile() result = %+v, want nil", res)
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("store file changed after failed load")
	}

	res, err = LoadFile(path, []byte("correct123"), quietLoad())
	if err != nil {
		t.Fatalf("LoadFile() with correct passphrase error = %v", err)
	}
	if res.Collection.Len() != 1 {
		t.Errorf("Len() = %d, want 1", res.Collection.Len())
	}
}

// TestTamperedBlob flips each byte of the decoded blob.
func TestTamperedBlob(t *testing.T) {
	data := seal(t, sampleCollection(), "correct123")
	c, err := container.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	for i := range c.Blob {
		blob := append([]byte(nil), c.Blob...)
		blob[i] ^= 0x80
		tampered, err := container.Encode(c.Salt, c.Cost, blob)
		if err != nil {
			t.Fatal(err)
		}
		for _, pass := range []string{"correct123", "wrong456"} {
			_, err := Load(tampered, []byte(pass), quietLoad())
			if !errors.Is(err, ErrWrongPassphraseOrCorrupt) {
				t.Fatalf("byte %d, passphrase %q: error = %v, want ErrWrongPassphraseOrCorrupt", i, pass, err)
			}
		}
	}
}

func TestTamperedSaltOrCost(t *testing.T) {
	data := seal(t, sampleCollection(), "correct123")
	c, err := container.Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	salt := append([]byte(nil), c.Salt...)
	salt[0] ^= 0xff
	tampered, _ := container.Encode(salt, c.Cost, c.Blob)
	if _, err := Load(tampered, []byte("correct123"), quietLoad()); !errors.Is(err, ErrWrongPassphraseOrCorrupt) {
		t.Errorf("tampered salt: error = %v, want ErrWrongPassphraseOrCorrupt", err)
	}

	cost := c.Cost
	cost.Iterations++
	tampered, _ = container.Encode(c.Salt, cost, c.Blob)
	if _, err := Load(tampered, []byte("correct123"), quietLoad()); !errors.Is(err, ErrWrongPassphraseOrCorrupt) {
		t.Errorf("tampered cost: error = %v, want ErrWrongPassphraseOrCorrupt", err)
	}
}

func TestLoadDerivationFailure(t *testing.T) {
	tests := []struct {
		name string
		salt []byte
		cost crypto.CostParams
	}{
		{"short salt", make([]byte, 4), testCost},
		{"zero iterations", make([]byte, crypto.SaltLength), crypto.CostParams{Iterations: 0, MemoryKiB: crypto.MinMemoryKiB}},
		{"huge memory", make([]byte, crypto.SaltLength), crypto.CostParams{Iterations: 1, MemoryKiB: crypto.MaxMemoryKiB + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := container.Encode(tt.salt, tt.cost, make([]byte, 64))
			if err != nil {
				t.Fatal(err)
			}
			_, err = Load(data, []byte("pw"), quietLoad())
			if !errors.Is(err, crypto.ErrDerivation) {
				t.Errorf("Load() error = %v, want crypto.ErrDerivation", err)
			}
			if errors.Is(err, ErrWrongPassphraseOrCorrupt) {
				t.Error("derivation failure must not be reported as wrong passphrase")
			}
		})
	}

	// An empty passphrase is a derivation failure, not the unencrypted mode.
	data := seal(t, sampleCollection(), "pw")
	if _, err := Load(data, []byte{}, quietLoad()); !errors.Is(err, crypto.ErrDerivation) {
		t.Errorf("Load() with empty passphrase error = %v, want crypto.ErrDerivation", err)
	}
}

func TestLoadEncryptedWithoutPassphrase(t *testing.T) {
	data := seal(t, sampleCollection(), "correct123")
	res, err := Load(data, nil, quietLoad())
	if !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("Load() error = %v, want ErrPassphraseRequired", err)
	}
	if res != nil {
		t.Error("Load() returned a collection for an encrypted store without passphrase")
	}
}

func TestLoadCorruptContainer(t *testing.T) {
	data := []byte(`{"salt_b64":"AAAA","kdf_iterations":3,"kdf_memory_kib":65536,"blob_b64":"not base64!"}`)
	_, err := Load(data, []byte("pw"), quietLoad())
	if !errors.Is(err, ErrCorruptContainer) {
		t.Fatalf("Load() error = %v, want ErrCorruptContainer", err)
	}
	var pe *container.ParseError
	if !errors.As(err, &pe) || pe.Field != container.FieldBlob {
		t.Errorf("Load() error = %v, want ParseError on %s", err, container.FieldBlob)
	}
}

func TestLoadCorruptPayload(t *testing.T) {
	salt, _ := crypto.GenerateSalt()
	key, err := crypto.DeriveKey([]byte("pw"), salt, testCost)
	if err != nil {
		t.Fatal(err)
	}
	blob, err := crypto.Seal(key, []byte(`{"not":"a collection"}`))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := container.Encode(salt, testCost, blob)

	_, err = Load(data, []byte("pw"), quietLoad())
	if !errors.Is(err, ErrCorruptPayload) {
		t.Errorf("Load() error = %v, want ErrCorruptPayload", err)
	}
}

const legacyDoc = `{
  "next_id": 4,
  "vault_items": [
    {"id": 1, "service": "github", "username": "alice", "password": "p@ss1"},
    {"id": 3, "service": "mail", "username": "bob", "password": "hunter2"}
  ]
}`

func TestLoadLegacy(t *testing.T) {
	want := []Record{
		{ID: 1, Service: "github", Username: "alice", Secret: "p@ss1"},
		{ID: 3, Service: "mail", Username: "bob", Secret: "hunter2"},
	}

	for _, pass := range [][]byte{nil, []byte("correct123")} {
		res, err := Load([]byte(legacyDoc), pass, quietLoad())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if res.Outcome != OutcomeLegacy {
			t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeLegacy)
		}
		if !reflect.DeepEqual(res.Collection.List(), want) {
			t.Errorf("List() = %+v, want %+v", res.Collection.List(), want)
		}
		if res.Collection.NextID() != 4 {
			t.Errorf("NextID() = %d, want 4", res.Collection.NextID())
		}
	}
}

// TestLegacyRoundTrip: bare format in, bare format out, list unchanged.
func TestLegacyRoundTrip(t *testing.T) {
	res, err := Load([]byte(legacyDoc), nil, quietLoad())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	data, err := SerializeForSave(res.Collection, nil, nil)
	if err != nil {
		t.Fatalf("SerializeForSave() error = %v", err)
	}
	if _, err := container.Decode(data); !errors.Is(err, container.ErrNotContainer) {
		t.Errorf("unencrypted save produced a container: %s", data)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unencrypted save is not JSON: %v", err)
	}
	if _, ok := doc["next_id"]; !ok {
		t.Error("unencrypted save missing next_id")
	}
	if _, ok := doc["vault_items"]; !ok {
		t.Error("unencrypted save missing vault_items")
	}

	again, err := Load(data, nil, quietLoad())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(again.Collection.List(), res.Collection.List()) {
		t.Errorf("List() = %+v, want %+v", again.Collection.List(), res.Collection.List())
	}
}

func TestLegacyMigratesToEncrypted(t *testing.T) {
	res, err := Load([]byte(legacyDoc), []byte("correct123"), quietLoad())
	if err != nil {
		t.Fatal(err)
	}
	data := seal(t, res.Collection, "correct123")
	if strings.Contains(string(data), "hunter2") {
		t.Error("encrypted save contains a plaintext secret")
	}

	again, err := Load(data, []byte("correct123"), quietLoad())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again.Outcome != OutcomeLoaded {
		t.Errorf("Outcome = %v, want %v", again.Outcome, OutcomeLoaded)
	}
	if !reflect.DeepEqual(again.Collection.List(), res.Collection.List()) {
		t.Errorf("List() = %+v, want %+v", again.Collection.List(), res.Collection.List())
	}
}

func TestLoadGarbageFallsBackToEmpty(t *testing.T) {
	var logged bytes.Buffer
	opts := &LoadOptions{Logger: slog.New(slog.NewTextHandler(&logged, nil))}

	for _, raw := range []string{"hello world", "[1,2,3]", `{"foo":"bar"}`, "\x00\x01\x02"} {
		logged.Reset()
		res, err := Load([]byte(raw), []byte("pw"), opts)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", raw, err)
		}
		if res.Outcome != OutcomeEmptyDefault {
			t.Errorf("Load(%q) Outcome = %v, want %v", raw, res.Outcome, OutcomeEmptyDefault)
		}
		if res.Collection.NextID() != 1 || res.Collection.Len() != 0 {
			t.Errorf("Load(%q) collection not empty", raw)
		}
		if !strings.Contains(logged.String(), "level=WARN") {
			t.Errorf("Load(%q) did not log a warning: %q", raw, logged.String())
		}
	}
}

func TestSaveUsesFreshSalt(t *testing.T) {
	c := sampleCollection()
	a, _ := container.Decode(seal(t, c, "same"))
	b, _ := container.Decode(seal(t, c, "same"))
	if bytes.Equal(a.Salt, b.Salt) {
		t.Error("two saves reused the same salt")
	}
	if bytes.Equal(a.Blob, b.Blob) {
		t.Error("two saves produced the same blob")
	}
}

func TestSaveDefaultCost(t *testing.T) {
	data, err := SerializeForSave(NewCollection(), []byte("pw"), nil)
	if err != nil {
		t.Fatalf("SerializeForSave() error = %v", err)
	}
	c, err := container.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if c.Cost != crypto.DefaultCostParams() {
		t.Errorf("Cost = %+v, want %+v", c.Cost, crypto.DefaultCostParams())
	}
	if len(c.Salt) != crypto.SaltLength {
		t.Errorf("salt length = %d, want %d", len(c.Salt), crypto.SaltLength)
	}
}

func TestSaveRejectsInvalidCost(t *testing.T) {
	opts := &SaveOptions{Cost: crypto.CostParams{Iterations: 0, MemoryKiB: 1024}}
	if _, err := SerializeForSave(NewCollection(), []byte("pw"), opts); !errors.Is(err, crypto.ErrDerivation) {
		t.Errorf("SerializeForSave() error = %v, want crypto.ErrDerivation", err)
	}
}

func TestSaveFileFailureKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	c := sampleCollection()
	if err := SaveFile(path, c, []byte("pw"), testSave); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	// Serialization fails before anything touches the file.
	if err := SaveFile(path, c, []byte{}, testSave); err == nil {
		t.Fatal("SaveFile() with empty passphrase succeeded")
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("store file changed after failed save")
	}
}

func TestInspect(t *testing.T) {
	enc := seal(t, sampleCollection(), "pw")

	tests := []struct {
		name string
		raw  []byte
		want Info
	}{
		{"empty", nil, Info{Format: FormatEmpty}},
		{"encrypted", enc, Info{Format: FormatEncrypted, Cost: testCost}},
		{"legacy", []byte(legacyDoc), Info{Format: FormatLegacy, Records: 2}},
		{"corrupt", []byte(`{"salt_b64":"AAAA"}`), Info{Format: FormatCorrupt}},
		{"garbage", []byte("garbage"), Info{Format: FormatUnrecognized}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Inspect(tt.raw); got != tt.want {
				t.Errorf("Inspect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSealedPlaintextIsBareFormat(t *testing.T) {
	c := sampleCollection()
	data := seal(t, c, "pw")
	ct, _ := container.Decode(data)
	key, err := crypto.DeriveKey([]byte("pw"), ct.Salt, ct.Cost)
	if err != nil {
		t.Fatal(err)
	}
	plaintext, err := crypto.Open(key, ct.Blob)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := json.Marshal(c)
	if !bytes.Equal(plaintext, want) {
		t.Errorf("sealed plaintext = %s, want %s", plaintext, want)
	}

	// The container itself carries only base64 text.
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	if _, err := base64.StdEncoding.DecodeString(raw["blob_b64"].(string)); err != nil {
		t.Errorf("blob_b64 is not base64: %v", err)
	}
}

func TestIDExhaustionKeepsStoreLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	pass := []byte("pw")
	legacy := `{"next_id":18446744073709551614,"vault_items":[{"id":7,"service":"old","username":"u","password":"p"}]}`
	if err := os.WriteFile(path, []byte(legacy), 0600); err != nil {
		t.Fatal(err)
	}

	res, err := LoadFile(path, pass, quietLoad())
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if res.Outcome != OutcomeLegacy {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, OutcomeLegacy)
	}
	if _, err := res.Collection.Add("last", "u", "p"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := res.Collection.Add("overflow", "u", "p"); !errors.Is(err, ErrIDsExhausted) {
		t.Fatalf("Add() error = %v, want ErrIDsExhausted", err)
	}
	if err := SaveFile(path, res.Collection, pass, testSave); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	res, err = LoadFile(path, pass, quietLoad())
	if err != nil {
		t.Fatalf("LoadFile() after save error = %v", err)
	}
	if res.Collection.Len() != 2 {
		t.Errorf("Len() = %d, want 2", res.Collection.Len())
	}
}

func TestLegacyMaxIDIsNotACollection(t *testing.T) {
	raw := []byte(`{"next_id":5,"vault_items":[{"id":18446744073709551615,"service":"s","username":"u","password":"p"}]}`)
	if got := Inspect(raw).Format; got != FormatUnrecognized {
		t.Errorf("Inspect() = %v, want %v", got, FormatUnrecognized)
	}

	// Inside a container the same payload is authenticated but unusable.
	salt, err := crypto.GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	key, err := crypto.DeriveKey([]byte("pw"), salt, testCost)
	if err != nil {
		t.Fatal(err)
	}
	blob, err := crypto.Seal(key, raw)
	if err != nil {
		t.Fatal(err)
	}
	data, err := container.Encode(salt, testCost, blob)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(data, []byte("pw"), quietLoad()); !errors.Is(err, ErrCorruptPayload) {
		t.Errorf("Load() error = %v, want ErrCorruptPayload", err)
	}
}
