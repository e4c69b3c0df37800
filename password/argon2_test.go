package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testConfig() Config {
	return Config{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("Abc12345!")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if strings.Contains(hash, "Abc12345!") {
		t.Fatal("hash must never contain the plaintext")
	}

	ok, err := h.Verify("Abc12345!", hash)
	if err != nil || !ok {
		t.Fatalf("Verify failed: ok=%v err=%v", ok, err)
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newTestHasher(t)
	a, _ := h.Hash("Abc12345!")
	b, _ := h.Hash("Abc12345!")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	h := newTestHasher(t)
	hash, err := h.Hash("correct-Password1!")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	ok, err := h.Verify("wrong-Password1!", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestHashTooShort(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Hash("short"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Verify("password", "not-a-phc-hash"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}

	hash, _ := h.Hash("version-test")
	wrongVersion := strings.Replace(hash, "$v=19$", "$v=18$", 1)
	if _, err := h.Verify("version-test", wrongVersion); err == nil {
		t.Fatal("expected unsupported version verification to fail")
	}
}

func TestNeedsUpgrade_WeakerParameters(t *testing.T) {
	old := newTestHasher(t)
	hash, _ := old.Hash("test-password")

	cfg := testConfig()
	cfg.Time = 2
	current, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	up, err := current.NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatalf("expected upgrade for weaker hash: up=%v err=%v", up, err)
	}

	up, err = old.NeedsUpgrade(hash)
	if err != nil || up {
		t.Fatalf("expected no upgrade for current parameters: up=%v err=%v", up, err)
	}
}

func TestLegacyBcryptVerifiesAndNeedsUpgrade(t *testing.T) {
	h := newTestHasher(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("Abc12345!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}

	ok, err := h.Verify("Abc12345!", string(legacy))
	if err != nil || !ok {
		t.Fatalf("bcrypt verify failed: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("Wrong12345!", string(legacy))
	if err != nil || ok {
		t.Fatalf("bcrypt wrong password should fail: ok=%v err=%v", ok, err)
	}
	if up, _ := h.NeedsUpgrade(string(legacy)); !up {
		t.Fatal("bcrypt hashes must need an upgrade")
	}
}

func TestPolicy(t *testing.T) {
	if problems := Policy("Abc12345!"); len(problems) != 0 {
		t.Fatalf("expected strong password to pass, got %v", problems)
	}

	problems := Policy("abc")
	if len(problems) != 4 {
		t.Fatalf("expected 4 problems (length, upper, digit, special), got %v", problems)
	}

	if problems := Policy(""); len(problems) != 1 {
		t.Fatalf("expected single required problem, got %v", problems)
	}
}
