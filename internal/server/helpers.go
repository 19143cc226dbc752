package server

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/quantu99/Test-Beincom-BE/internal/middleware"
	"github.com/quantu99/Test-Beincom-BE/internal/models"
	"github.com/quantu99/Test-Beincom-BE/internal/redisclient"
	"github.com/quantu99/Test-Beincom-BE/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// pageQuery holds the parsed listing query parameters.
type pageQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// parsePageQuery reads page, limit, search, sortBy and sortOrder. Page and
// limit must be positive integers; limit is capped at 100 and sortOrder is
// ASC or DESC in any case.
func parsePageQuery(c *fiber.Ctx, defaultLimit int) (pageQuery, error) {
	q := pageQuery{
		Page:      1,
		Limit:     defaultLimit,
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    strings.TrimSpace(c.Query("sortBy")),
		SortOrder: "DESC",
	}

	var err error
	if q.Page, err = positiveQueryInt(c, "page", 1); err != nil {
		return q, err
	}
	if q.Limit, err = positiveQueryInt(c, "limit", defaultLimit); err != nil {
		return q, err
	}
	if q.Limit > service.MaxPageLimit {
		q.Limit = service.MaxPageLimit
	}

	if raw := strings.TrimSpace(c.Query("sortOrder")); raw != "" {
		order := strings.ToUpper(raw)
		if order != "ASC" && order != "DESC" {
			return q, models.NewValidationError("sortOrder must be ASC or DESC")
		}
		q.SortOrder = order
	}
	return q, nil
}

func positiveQueryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, models.NewValidationError(key + " must be a positive integer")
	}
	return n, nil
}

// parseUUID extracts a route parameter by name as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "postId" -> "post ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// statusForError maps an AppError code to its HTTP status.
func statusForError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with the status its code maps to.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, err)
}

// currentUserID returns the caller set by AuthRequired.
func currentUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("userID").(uuid.UUID)
	return id
}

// optionalUserID reads the caller from a Bearer token without enforcing it.
// Invalid, revoked or missing tokens yield uuid.Nil.
func (s *Server) optionalUserID(c *fiber.Ctx) uuid.UUID {
	token := middleware.BearerToken(c)
	if token == "" {
		return uuid.Nil
	}
	claims, err := middleware.ParseToken(s.config.JWTSecret, token)
	if err != nil {
		return uuid.Nil
	}
	revoked, err := redisclient.IsRevoked(c.UserContext(), s.redis, claims.JTI)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "token revocation check failed",
			slog.String("error", err.Error()))
	}
	if revoked {
		return uuid.Nil
	}
	return claims.UserID
}

// isMultipart reports whether the request body is multipart/form-data.
func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// formImage reads the "image" file of a multipart request, or returns nil
// when none was sent. Reads are capped one byte past maxBytes so oversize
// files are still rejected by the image service.
func formImage(c *fiber.Ctx, maxBytes int64) (*service.UploadImageInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Invalid multipart form")
	}
	files := form.File["image"]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	return &service.UploadImageInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     data,
	}, nil
}

// formValue returns a pointer to the named multipart field, nil when absent.
func formValue(c *fiber.Ctx, key string) *string {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
