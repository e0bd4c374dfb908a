package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"backend-journeylog/internal/db"

	"github.com/google/uuid"
)

type Kind string

const (
	KindImage Kind = "image"
	KindGPX   Kind = "gpx"
)

var (
	ErrUnsupportedKind = errors.New("unsupported file type")
	ErrNotFound        = errors.New("file not found")
)

var extensions = map[Kind][]string{
	KindImage: {".jpg", ".jpeg", ".png", ".webp", ".gif", ".heic"},
	KindGPX:   {".gpx"},
}

// Object is one stored upload.
type Object struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Kind   Kind   `json:"kind"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

type Service struct {
	db        db.Querier
	dir       string
	publicURL string
}

func NewService(db db.Querier, dir, publicURL string) *Service {
	return &Service{db: db, dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

// KindOf guesses the kind of an upload from its file name.
func KindOf(filename string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for kind, exts := range extensions {
		for _, e := range exts {
			if e == ext {
				return kind, true
			}
		}
	}
	return "", false
}

func accepts(kind Kind, filename string) bool {
	got, ok := KindOf(filename)
	return ok && got == kind
}

// Save writes the upload under a fresh name and records it.
func (s *Service) Save(ctx context.Context, userID string, kind Kind, filename string, r io.Reader) (Object, error) {
	if !accepts(kind, filename) {
		return Object{}, fmt.Errorf("%w: %s as %s", ErrUnsupportedKind, filepath.Ext(filename), kind)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("create upload dir: %w", err)
	}

	obj := Object{
		UserID: userID,
		Kind:   kind,
		Name:   uuid.NewString() + strings.ToLower(filepath.Ext(filename)),
	}
	obj.URL = s.publicURL + "/uploads/" + obj.Name

	path := filepath.Join(s.dir, obj.Name)
	f, err := os.Create(path)
	if err != nil {
		return Object{}, fmt.Errorf("create file: %w", err)
	}
	obj.Size, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("write file: %w", err)
	}

	id, err := s.SaveObject(ctx, userID, obj.URL, string(kind))
	if err != nil {
		_ = os.Remove(path)
		return Object{}, err
	}
	obj.ID = id
	return obj, nil
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Path resolves a stored file name. Names that try to leave the upload
// directory are rejected.
func (s *Service) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}
