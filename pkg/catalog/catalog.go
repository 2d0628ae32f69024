// Package catalog owns the template library: uploaded template files with
// their metadata sidecars, and the discovery of which fields a template
// requires. Discovery scans the template text for {{placeholder}} tokens and
// normalizes them against the canonical field table; templates without
// placeholders fall back to a category-based default set, so analysis always
// yields a usable requirement list.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/docx"
	"github.com/opora-ai/docforge/pkg/models"
)

// Service manages stored templates and their field requirements.
type Service interface {
	// Upload stores a new template file with its metadata and returns the
	// descriptor. The kind is derived from the source filename extension.
	Upload(ctx context.Context, name, description, sourceName string, r io.Reader) (*models.TemplateDescriptor, error)

	// List returns all templates ordered by upload time, newest first.
	List(ctx context.Context) ([]*models.TemplateDescriptor, error)

	// Get returns one template by id.
	Get(ctx context.Context, id uuid.UUID) (*models.TemplateDescriptor, error)

	// Resolve finds a template by id string or by display name. Name matching
	// is case-insensitive; a unique substring match also resolves.
	Resolve(ctx context.Context, nameOrID string) (*models.TemplateDescriptor, error)

	// Delete removes a template file and its metadata.
	Delete(ctx context.Context, id uuid.UUID) error

	// RequiredFields analyzes the template content and returns the fields a
	// document built from it needs, in question priority order.
	RequiredFields(tpl *models.TemplateDescriptor) (*FieldSet, error)

	// TemplatePath returns the on-disk path of the template's source file.
	TemplatePath(tpl *models.TemplateDescriptor) string
}

type service struct {
	dir    string
	logger *zap.Logger
}

// NewService creates the template catalog over the given directory,
// creating it if needed.
func NewService(dir string, logger *zap.Logger) (Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir %s: %w", dir, err)
	}
	return &service{
		dir:    dir,
		logger: logger.Named("catalog"),
	}, nil
}

func (s *service) Upload(ctx context.Context, name, description, sourceName string, r io.Reader) (*models.TemplateDescriptor, error) {
	kind, err := kindFromFilename(sourceName)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	tpl := &models.TemplateDescriptor{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Filename:    id.String() + "." + string(kind),
		SourceName:  sourceName,
		Kind:        kind,
		UploadedAt:  time.Now().UTC(),
	}
	if tpl.Name == "" {
		tpl.Name = strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	}

	path := filepath.Join(s.dir, tpl.Filename)
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("store template %s: %w", tpl.Filename, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return nil, fmt.Errorf("store template %s: %w", tpl.Filename, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("store template %s: %w", tpl.Filename, err)
	}

	if err := s.writeSidecar(tpl); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.logger.Info("template uploaded",
		zap.String("template_id", id.String()),
		zap.String("name", tpl.Name),
		zap.String("kind", string(kind)))
	return tpl, nil
}

func (s *service) List(ctx context.Context) ([]*models.TemplateDescriptor, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	templates := make([]*models.TemplateDescriptor, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		tpl, err := s.readSidecar(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// A broken sidecar hides one template, not the whole catalog.
			s.logger.Warn("skipping unreadable template metadata",
				zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		templates = append(templates, tpl)
	}

	sort.Slice(templates, func(i, j int) bool {
		if !templates[i].UploadedAt.Equal(templates[j].UploadedAt) {
			return templates[i].UploadedAt.After(templates[j].UploadedAt)
		}
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.TemplateDescriptor, error) {
	tpl, err := s.readSidecar(filepath.Join(s.dir, id.String()+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *service) Resolve(ctx context.Context, nameOrID string) (*models.TemplateDescriptor, error) {
	query := strings.TrimSpace(nameOrID)
	if query == "" {
		return nil, apperrors.ErrDocumentNotFound
	}

	if id, err := uuid.Parse(query); err == nil {
		tpl, err := s.Get(ctx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return tpl, err
	}

	templates, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(query)
	for _, tpl := range templates {
		if strings.ToLower(tpl.Name) == lower {
			return tpl, nil
		}
	}

	var partial *models.TemplateDescriptor
	for _, tpl := range templates {
		if strings.Contains(strings.ToLower(tpl.Name), lower) {
			if partial != nil {
				// Ambiguous: make the caller re-prompt instead of guessing.
				return nil, apperrors.ErrDocumentNotFound
			}
			partial = tpl
		}
	}
	if partial != nil {
		return partial, nil
	}
	return nil, apperrors.ErrDocumentNotFound
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, tpl.Filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete template file %s: %w", tpl.Filename, err)
	}
	if err := os.Remove(filepath.Join(s.dir, id.String()+".json")); err != nil {
		return fmt.Errorf("delete template metadata %s: %w", id, err)
	}

	s.logger.Info("template deleted", zap.String("template_id", id.String()), zap.String("name", tpl.Name))
	return nil
}

// placeholderPattern matches tokens in already-extracted plain text, where
// no XML tags interleave with the braces.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

func (s *service) RequiredFields(tpl *models.TemplateDescriptor) (*FieldSet, error) {
	text, err := s.templateText(tpl)
	if err != nil {
		return nil, err
	}

	set := NewFieldSet()
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		token := docx.TokenName(m[1])
		if token == "" {
			continue
		}
		if def, ok := ResolveField(token); ok {
			set.Add(def.Key, def.Label)
		} else {
			// Unknown placeholders are still requirements; keep them verbatim.
			set.Add(token, token)
		}
	}

	if set.Len() == 0 {
		category := DetermineCategory(tpl.Name)
		for _, key := range baseFieldsForCategory(category) {
			set.Add(key, LabelFor(key))
		}
		s.logger.Debug("no placeholders found, using category defaults",
			zap.String("template_id", tpl.ID.String()),
			zap.String("category", string(category)))
		return set, nil
	}

	set.sortByTableOrder()
	return set, nil
}

func (s *service) TemplatePath(tpl *models.TemplateDescriptor) string {
	return filepath.Join(s.dir, tpl.Filename)
}

func (s *service) templateText(tpl *models.TemplateDescriptor) (string, error) {
	path := s.TemplatePath(tpl)
	switch tpl.Kind {
	case models.TemplateKindDocx:
		text, err := docx.ExtractText(path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", apperrors.ErrTemplateUnreadable, tpl.Filename, err)
		}
		return text, nil
	case models.TemplateKindText:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", apperrors.ErrTemplateUnreadable, tpl.Filename, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: unsupported kind %q", apperrors.ErrTemplateUnreadable, tpl.Kind)
	}
}

func (s *service) writeSidecar(tpl *models.TemplateDescriptor) error {
	data, err := json.MarshalIndent(tpl, "", "  ")
	if err != nil {
		return fmt.Errorf("encode template metadata: %w", err)
	}
	path := filepath.Join(s.dir, tpl.ID.String()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write template metadata: %w", err)
	}
	return nil
}

func (s *service) readSidecar(path string) (*models.TemplateDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tpl models.TemplateDescriptor
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("decode template metadata %s: %w", filepath.Base(path), err)
	}
	return &tpl, nil
}

func kindFromFilename(name string) (models.TemplateKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return models.TemplateKindDocx, nil
	case ".txt":
		return models.TemplateKindText, nil
	default:
		return "", fmt.Errorf("%w: unsupported extension %q", apperrors.ErrTemplateUnreadable, filepath.Ext(name))
	}
}

// DetermineCategory classifies a template by its display name. First match
// in declared order wins; names matching nothing fall into the catch-all.
func DetermineCategory(name string) models.DocumentCategory {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "заявлен"):
		return models.CategoryApplication
	case strings.Contains(lower, "анкет"):
		return models.CategoryQuestionnaire
	case strings.Contains(lower, "договор"), strings.Contains(lower, "контракт"):
		return models.CategoryContract
	case strings.Contains(lower, "жалоб"), strings.Contains(lower, "претензи"):
		return models.CategoryComplaint
	case strings.Contains(lower, "отчет"), strings.Contains(lower, "отчёт"):
		return models.CategoryReport
	case strings.Contains(lower, "справк"):
		return models.CategoryCertificate
	case strings.Contains(lower, "протокол"):
		return models.CategoryProtocol
	default:
		return models.CategoryOther
	}
}

// baseFieldsForCategory returns the default requirement set for templates
// that declare no placeholders of their own.
func baseFieldsForCategory(category models.DocumentCategory) []string {
	switch category {
	case models.CategoryApplication:
		return []string{"full_name", "email", "phone", "organization"}
	case models.CategoryQuestionnaire:
		return []string{"full_name", "email", "phone", "organization", "position", "inn", "address", "birth_date"}
	case models.CategoryContract:
		return []string{"full_name", "email", "phone", "organization", "inn", "address"}
	case models.CategoryComplaint:
		return []string{"full_name", "email", "phone", "address"}
	case models.CategoryReport:
		return []string{"full_name", "organization", "position", "business_type"}
	case models.CategoryCertificate:
		return []string{"full_name", "email", "phone", "address"}
	case models.CategoryProtocol:
		return []string{"full_name", "organization", "position"}
	default:
		return []string{"full_name", "email", "phone", "organization"}
	}
}
