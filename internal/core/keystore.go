package core

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/envelope"
	"github.com/illarion/ledgerkey/internal/errs"
	"github.com/illarion/ledgerkey/internal/pbes2"
	"github.com/illarion/ledgerkey/internal/storage"
)

const (
	StoreFile           = ".ledgerkey"
	MaxNameLength       = 128
	passwordCheckString = "ledgerkey-password-check"
)

var (
	ErrNotInitialized = errors.New("ledgerkey store not initialized")
	ErrAlreadyExists  = errors.New("ledgerkey store already exists")
	ErrWrongPassword  = errors.New("wrong password")
	ErrKeyNotFound    = errors.New("key not found")
	ErrKeyExists      = errors.New("key already exists")
)

// KeyStore manages wrapped keys in a store file
type KeyStore struct {
	path          string
	maxIterations int
	logger        *slog.Logger
}

// Option configures a KeyStore
type Option func(*KeyStore)

// WithMaxIterations caps the PBKDF2 iteration count accepted from envelopes
func WithMaxIterations(n int) Option {
	return func(k *KeyStore) {
		k.maxIterations = n
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(k *KeyStore) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// New creates a KeyStore for the store file at path
func New(path string, opts ...Option) *KeyStore {
	k := &KeyStore{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Path returns the store file path
func (k *KeyStore) Path() string {
	return k.path
}

// open opens an existing, initialized store
func (k *KeyStore) open() (*storage.Storage, error) {
	if _, err := os.Stat(k.path); err != nil {
		return nil, ErrNotInitialized
	}
	db, err := storage.Open(k.path)
	if err != nil {
		return nil, err
	}
	initialized, err := db.IsInitialized()
	if err != nil || !initialized {
		db.Close()
		return nil, ErrNotInitialized
	}
	return db, nil
}

func (k *KeyStore) unwrapOptions() []pbes2.Option {
	return []pbes2.Option{pbes2.WithMaxIterations(k.maxIterations)}
}

// ValidateName checks that a key name is usable as a store key
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: key name is required", errs.ErrInvalidArgument)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: key name longer than %d bytes", errs.ErrInvalidArgument, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: key name %q contains whitespace or control characters", errs.ErrInvalidArgument, name)
		}
	}
	return nil
}

func checkValue() []byte {
	sum := sha256.Sum256([]byte(passwordCheckString))
	return sum[:]
}

func (k *KeyStore) newCheck(ctx context.Context, password []byte) ([]byte, error) {
	env, err := pbes2.WrapWithPassword(ctx, password, checkValue())
	if err != nil {
		return nil, fmt.Errorf("failed to create password check: %w", err)
	}
	return envelope.Marshal(env)
}

// Init creates a new store protected by password
func (k *KeyStore) Init(ctx context.Context, password []byte) error {
	if _, err := os.Stat(k.path); err == nil {
		return ErrAlreadyExists
	}
	if len(password) == 0 {
		return fmt.Errorf("%w: password is required", errs.ErrInvalidArgument)
	}

	check, err := k.newCheck(ctx, password)
	if err != nil {
		return err
	}

	db, err := storage.Open(k.path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.SetCheck(check); err != nil {
		return fmt.Errorf("failed to store password check: %w", err)
	}
	if _, err := db.GetOrCreateStoreID(); err != nil {
		return err
	}

	k.logger.Debug("store initialized", "path", k.path)
	return nil
}

func (k *KeyStore) verify(ctx context.Context, db *storage.Storage, password []byte) error {
	data, err := db.GetCheck()
	if err != nil {
		return fmt.Errorf("failed to read password check: %w", err)
	}
	got, err := pbes2.UnwrapJSON(ctx, password, data, k.unwrapOptions()...)
	if errors.Is(err, errs.ErrIntegrity) {
		return ErrWrongPassword
	}
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(got)

	if !crypto.ConstantTimeCompare(got, checkValue()) {
		return ErrWrongPassword
	}
	return nil
}

// VerifyPassword checks password against the store
func (k *KeyStore) VerifyPassword(ctx context.Context, password []byte) error {
	db, err := k.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return k.verify(ctx, db, password)
}

func (k *KeyStore) put(ctx context.Context, db *storage.Storage, name string, key, password []byte, overwrite bool) (*storage.KeyEntry, error) {
	env, err := pbes2.WrapWithPassword(ctx, password, key)
	if err != nil {
		return nil, err
	}
	data, err := envelope.Marshal(env)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := storage.KeyEntry{
		Name:        name,
		Size:        len(key),
		Fingerprint: crypto.Fingerprint(key),
		Iterations:  env.Unprotected.P2C,
		Created:     now,
		Modified:    now,
	}
	if existing, err := db.GetEntry(name); err == nil && existing != nil {
		if !overwrite {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, name)
		}
		entry.Created = existing.Created
	}

	if err := db.PutKey(entry, data, overwrite); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, name)
		}
		return nil, fmt.Errorf("failed to store key: %w", err)
	}

	k.logger.Debug("key wrapped", "name", name, "fingerprint", entry.Fingerprint, "size", entry.Size)
	return &entry, nil
}

// AddKey wraps key under the store password and saves it as name
func (k *KeyStore) AddKey(ctx context.Context, name string, key, password []byte, overwrite bool) (*storage.KeyEntry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	db, err := k.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := k.verify(ctx, db, password); err != nil {
		return nil, err
	}
	return k.put(ctx, db, name, key, password, overwrite)
}

// GenerateKey creates a random key of size bytes and stores it as name.
// The caller owns the returned key and should clear it.
func (k *KeyStore) GenerateKey(ctx context.Context, name string, size int, password []byte) ([]byte, *storage.KeyEntry, error) {
	if size < crypto.MinWrapInput || size%8 != 0 {
		return nil, nil, fmt.Errorf("%w: key size must be a multiple of 8 of at least %d bytes", errs.ErrInvalidArgument, crypto.MinWrapInput)
	}
	key, err := crypto.GenerateRandom(size)
	if err != nil {
		return nil, nil, err
	}
	entry, err := k.AddKey(ctx, name, key, password, false)
	if err != nil {
		crypto.ClearBytes(key)
		return nil, nil, err
	}
	return key, entry, nil
}

// UnwrapKey recovers the key stored as name
func (k *KeyStore) UnwrapKey(ctx context.Context, name string, password []byte) ([]byte, error) {
	db, err := k.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := k.verify(ctx, db, password); err != nil {
		return nil, err
	}

	data, err := db.GetEnvelope(name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	key, err := pbes2.UnwrapJSON(ctx, password, data, k.unwrapOptions()...)
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", name, err)
	}
	return key, nil
}

// ExportEnvelope returns the JSON envelope stored as name. No password is
// needed: the envelope is only useful together with the store password.
func (k *KeyStore) ExportEnvelope(name string) ([]byte, error) {
	db, err := k.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	data, err := db.GetEnvelope(name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return data, err
}

// ImportEnvelope unwraps an external envelope with envelopePassword and
// stores the key as name under the store password. A nil envelopePassword
// means the envelope uses the store password.
func (k *KeyStore) ImportEnvelope(ctx context.Context, name string, data, envelopePassword, storePassword []byte) (*storage.KeyEntry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	env, err := envelope.Parse(data)
	if err != nil {
		return nil, err
	}

	db, err := k.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := k.verify(ctx, db, storePassword); err != nil {
		return nil, err
	}

	if envelopePassword == nil {
		envelopePassword = storePassword
	}
	key, err := pbes2.UnwrapWithPassword(ctx, envelopePassword, env, k.unwrapOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open imported envelope: %w", err)
	}
	defer crypto.ClearBytes(key)

	return k.put(ctx, db, name, key, storePassword, false)
}

// RemoveKeys deletes the named keys. Unknown names are reported after the
// known ones are removed.
func (k *KeyStore) RemoveKeys(ctx context.Context, names []string, password []byte) error {
	db, err := k.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := k.verify(ctx, db, password); err != nil {
		return err
	}

	var missing []string
	for _, name := range names {
		if err := db.RemoveKey(name); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				missing = append(missing, name)
				continue
			}
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		k.logger.Debug("key removed", "name", name)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// List returns the index entries of all stored keys. No password is needed.
func (k *KeyStore) List(ctx context.Context) ([]storage.KeyEntry, error) {
	db, err := k.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.ListEntries()
}

// ChangePassword rewraps every stored key and the password check under
// newPassword. The store is updated in one transaction.
func (k *KeyStore) ChangePassword(ctx context.Context, currentPassword, newPassword []byte) error {
	if len(newPassword) == 0 {
		return fmt.Errorf("%w: new password is required", errs.ErrInvalidArgument)
	}
	db, err := k.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := k.verify(ctx, db, currentPassword); err != nil {
		return err
	}

	records, err := db.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to read keys: %w", err)
	}

	now := time.Now().UTC()
	for i := range records {
		key, err := pbes2.UnwrapJSON(ctx, currentPassword, records[i].Envelope, k.unwrapOptions()...)
		if err != nil {
			return fmt.Errorf("key %s: %w", records[i].Entry.Name, err)
		}
		env, err := pbes2.WrapWithPassword(ctx, newPassword, key)
		crypto.ClearBytes(key)
		if err != nil {
			return fmt.Errorf("failed to rewrap %s: %w", records[i].Entry.Name, err)
		}
		data, err := envelope.Marshal(env)
		if err != nil {
			return err
		}
		records[i].Envelope = data
		records[i].Entry.Iterations = env.Unprotected.P2C
		records[i].Entry.Modified = now
	}

	check, err := k.newCheck(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := db.ReplaceAll(check, records); err != nil {
		return fmt.Errorf("failed to store rewrapped keys: %w", err)
	}

	k.logger.Debug("password changed", "keys", len(records))
	return nil
}

// Compact compacts the store file
func (k *KeyStore) Compact() error {
	db, err := k.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Compact()
}

// GetStoreID returns the store ID used for keyring entries
func (k *KeyStore) GetStoreID() (string, error) {
	db, err := k.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetStoreID()
}

// GetOrCreateStoreID returns the store ID, creating one for older stores
func (k *KeyStore) GetOrCreateStoreID() (string, error) {
	db, err := k.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetOrCreateStoreID()
}

// StoreStatus summarizes a store
type StoreStatus struct {
	Path     string
	StoreID  string
	Modified time.Time
	Keys     []storage.KeyEntry
}

// Status reports the store ID, last modification and key index
func (k *KeyStore) Status(ctx context.Context) (*StoreStatus, error) {
	db, err := k.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	status := &StoreStatus{Path: k.path}
	if status.StoreID, err = db.GetStoreID(); err != nil {
		return nil, err
	}
	if status.Modified, err = db.GetModified(); err != nil {
		return nil, err
	}
	if status.Keys, err = db.ListEntries(); err != nil {
		return nil, err
	}
	return status, nil
}
