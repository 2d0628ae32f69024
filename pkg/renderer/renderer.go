// Package renderer turns a template plus extracted values into a generated
// document artifact. Rich docx templates are patched in place at the
// container level; plain-text templates are substituted as text and wrapped
// into the same docx output format, so every artifact a user downloads has
// one consistent type.
package renderer

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/docx"
	"github.com/opora-ai/docforge/pkg/models"
)

// Service renders documents from templates.
type Service interface {
	// Render builds the output artifact for a template and value map. The
	// returned document carries no scores; the caller stamps those on.
	Render(tpl *models.TemplateDescriptor, values models.FieldValues, userID string) (*models.GeneratedDocument, error)

	// ArtifactPath resolves a stored artifact filename inside the generated
	// directory, rejecting names that try to escape it.
	ArtifactPath(filename string) (string, error)
}

type service struct {
	catalog catalog.Service
	dir     string
	baseURL string
	logger  *zap.Logger
}

// NewService creates the renderer writing artifacts under dir. baseURL is
// prepended to download links.
func NewService(cat catalog.Service, dir, baseURL string, logger *zap.Logger) (Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create generated dir %s: %w", dir, err)
	}
	return &service{
		catalog: cat,
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("renderer"),
	}, nil
}

func (s *service) Render(tpl *models.TemplateDescriptor, values models.FieldValues, userID string) (*models.GeneratedDocument, error) {
	id := uuid.New()
	filename := artifactName(tpl.Name, userID, id)
	outPath := filepath.Join(s.dir, filename)
	srcPath := s.catalog.TemplatePath(tpl)

	plain := values.Plain()
	resolve := func(name string) string {
		if v, ok := plain[name]; ok {
			return v
		}
		if def, ok := catalog.ResolveField(name); ok {
			if v, ok := plain[def.Key]; ok {
				return v
			}
		}
		// Unresolved tokens render empty: no literal placeholder may
		// survive in a generated document.
		return ""
	}

	var err error
	switch tpl.Kind {
	case models.TemplateKindDocx:
		err = docx.Render(srcPath, outPath, resolve)
	case models.TemplateKindText:
		err = s.renderText(srcPath, outPath, resolve)
	default:
		err = fmt.Errorf("unsupported template kind %q", tpl.Kind)
	}
	if err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("%w: template %s: %v", apperrors.ErrRenderFailure, tpl.ID, err)
	}

	s.logger.Info("document rendered",
		zap.String("template_id", tpl.ID.String()),
		zap.String("user_id", userID),
		zap.String("file", filename))

	return &models.GeneratedDocument{
		ID:           id,
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		UserID:       userID,
		Path:         outPath,
		DownloadURL:  s.baseURL + "/api/documents/download?file=" + url.QueryEscape(filename),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// renderText substitutes tokens in a plain-text template and wraps the
// result into the docx output container.
func (s *service) renderText(srcPath, outPath string, resolve func(string) string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	text := textTokenPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		name := docx.TokenName(match)
		if name == "" {
			return match
		}
		return resolve(name)
	})
	return docx.WriteTextDocument(outPath, text)
}

var textTokenPattern = regexp.MustCompile(`\{\{[^{}]+\}\}`)

func (s *service) ArtifactPath(filename string) (string, error) {
	clean := filepath.Base(filename)
	if clean != filename || clean == "." || clean == "" {
		return "", apperrors.ErrNotFound
	}
	path := filepath.Join(s.dir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.ErrNotFound
	}
	return path, nil
}

// artifactName builds a collision-resistant output filename: sanitized
// template name, user, timestamp, and a random suffix.
func artifactName(templateName, userID string, id uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s_%s.docx",
		sanitizeName(templateName),
		sanitizeName(userID),
		time.Now().UTC().Format("20060102_150405"),
		id.String()[:8])
}

var unsafeNameChars = regexp.MustCompile(`[^0-9A-Za-zА-Яа-яЁё_-]+`)

func sanitizeName(name string) string {
	clean := unsafeNameChars.ReplaceAllString(name, "_")
	clean = strings.Trim(clean, "_")
	if clean == "" {
		return "document"
	}
	if len([]rune(clean)) > 40 {
		clean = string([]rune(clean)[:40])
	}
	return clean
}
