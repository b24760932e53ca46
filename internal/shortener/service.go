package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tinylink-dev/tinylink/codegen"
	"github.com/tinylink-dev/tinylink/internal/errx"
)

const (
	MaxURLLength      = 2048
	DefaultCodeLength = codegen.DefaultLength

	// DefaultCreateRetries bounds the insert attempts for generated codes
	// before giving up with ErrGenerationExhausted.
	DefaultCreateRetries = 3
)

// ErrGenerationExhausted is returned when every generated code collided
// with an existing one. With a 62^6 code space this points at a store
// problem rather than bad luck.
var ErrGenerationExhausted = errors.New("could not generate a unique short code after retries")

// DuplicateURLError reports that a URL already has a short code. It is a
// soft conflict: Existing carries the mapping the caller should reuse.
type DuplicateURLError struct {
	Existing Link
}

func (e *DuplicateURLError) Error() string {
	return fmt.Sprintf("url already shortened as %q", e.Existing.ShortCode)
}

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	OriginalURL string
	CustomCode  string // Optional: if empty, a code will be generated
}

// Service defines the business logic operations for URL shortening.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (Link, error)
	Resolve(ctx context.Context, code string) (string, error)
	Stats(ctx context.Context, code string) (Link, error)
	List(ctx context.Context) ([]Link, error)
	Delete(ctx context.Context, code string) (bool, error)
	Ping(ctx context.Context) error
}

type service struct {
	repo          Repository
	codeGenerator codegen.Generator
	codeLength    int
	createRetries int
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator codegen.Generator
	CodeLength    int
	CreateRetries int // insert attempts for generated codes (default: 3)
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	gen := config.CodeGenerator
	if gen == nil {
		gen = codegen.NewAlphanumeric()
	}

	length := config.CodeLength
	if length <= 0 || length > codegen.MaxCustomLength {
		length = DefaultCodeLength
	}

	retries := config.CreateRetries
	if retries <= 0 {
		retries = DefaultCreateRetries
	}

	return &service{
		repo:          repo,
		codeGenerator: gen,
		codeLength:    length,
		createRetries: retries,
	}
}

// Create creates a new short link with an optional custom code.
//
// Without a custom code the URL is checked for an existing mapping first
// and a DuplicateURLError is returned when one exists. A custom code
// bypasses that check, so one URL may intentionally end up with several
// codes.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (Link, error) {
	const op = "shortener.service.Create"

	if err := validateURL(req.OriginalURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	if req.CustomCode != "" {
		return s.createWithCustomCode(ctx, op, req)
	}

	// Default path is idempotent per URL: surface the existing mapping
	// instead of minting a second code.
	existing, err := s.repo.FindByURL(ctx, req.OriginalURL)
	switch {
	case err == nil:
		return Link{}, errx.E(op, errx.Conflict, &DuplicateURLError{Existing: existing})
	case errx.KindOf(err) != errx.NotFound:
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	// Generated code path: the store's uniqueness constraint arbitrates
	// collisions, retry on conflict.
	for range s.createRetries {
		code, err := s.codeGenerator.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.repo.Insert(ctx, Link{
			OriginalURL: req.OriginalURL,
			ShortCode:   code,
		})
		if err == nil {
			return created, nil
		}
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return Link{}, errx.E(op, errx.Internal, ErrGenerationExhausted)
}

func (s *service) createWithCustomCode(ctx context.Context, op string, req CreateLinkRequest) (Link, error) {
	if err := codegen.ValidateCustom(req.CustomCode); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	// Pre-check for a friendlier error; the insert below still closes
	// the race through the store constraint.
	taken, err := s.repo.ExistsByCode(ctx, req.CustomCode)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	if taken {
		return Link{}, errx.E(op, errx.Conflict, errors.New("short code already exists"))
	}

	created, err := s.repo.Insert(ctx, Link{
		OriginalURL: req.OriginalURL,
		ShortCode:   req.CustomCode,
	})
	if err != nil {
		// A conflict here means we lost the race; terminal for custom codes.
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

// Resolve looks up a short code, bumps its click counter, and returns the
// stored URL unmodified. Scheme normalization is the redirect adapter's
// concern.
func (s *service) Resolve(ctx context.Context, code string) (string, error) {
	const op = "shortener.service.Resolve"

	if code == "" {
		return "", errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	originalURL, err := s.repo.IncrementAndTouch(ctx, code)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}
	return originalURL, nil
}

// Stats returns the link for a short code without mutating it.
func (s *service) Stats(ctx context.Context, code string) (Link, error) {
	const op = "shortener.service.Stats"

	if code == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

// List returns every link, newest first.
func (s *service) List(ctx context.Context) ([]Link, error) {
	const op = "shortener.service.List"

	links, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

// Delete removes a link, reporting whether it existed.
func (s *service) Delete(ctx context.Context, code string) (bool, error) {
	const op = "shortener.service.Delete"

	if code == "" {
		return false, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}

	deleted, err := s.repo.DeleteByCode(ctx, code)
	if err != nil {
		return false, errx.E(op, errx.KindOf(err), err)
	}
	return deleted, nil
}

// Ping verifies the store is reachable.
func (s *service) Ping(ctx context.Context) error {
	const op = "shortener.service.Ping"

	if err := s.repo.Ping(ctx); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

// validateURL accepts absolute http(s) URLs. A scheme-less value such as
// "example.com/page" is allowed; it is validated as if prefixed with
// https:// but stored exactly as given.
func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url is required")
	}
	if len(rawURL) > MaxURLLength {
		return fmt.Errorf("url too long (max %d characters)", MaxURLLength)
	}

	candidate := rawURL
	if !strings.Contains(rawURL, "://") {
		candidate = "https://" + rawURL
	}

	parsedURL, err := url.Parse(candidate)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include a host")
	}
	return nil
}
