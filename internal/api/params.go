package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "repograph/internal/errors"
)

// maxBodyBytes bounds POST bodies. File content sent to /api/summarize is
// truncated later anyway.
const maxBodyBytes = 2 << 20

var repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// repoQuery is the query of /api/fetchRepo and /api/graph.
type repoQuery struct {
	Owner  string `json:"owner" validate:"required,reponame"`
	Repo   string `json:"repo" validate:"required,reponame"`
	Branch string `json:"branch"`
	Depth  int    `json:"depth" validate:"omitempty,min=1"`
}

// listQuery is the query of the paginated list endpoints.
type listQuery struct {
	Owner   string `json:"owner" validate:"required,reponame"`
	Repo    string `json:"repo" validate:"required,reponame"`
	Branch  string `json:"branch"`
	State   string `json:"state"`
	Page    int    `json:"page" validate:"omitempty,min=1"`
	PerPage int    `json:"per_page" validate:"omitempty,min=1,max=100"`
}

// fileContentsBody is the body of POST /api/fileContents.
type fileContentsBody struct {
	Owner  string `json:"owner" validate:"required,reponame"`
	Repo   string `json:"repo" validate:"required,reponame"`
	Path   string `json:"path" validate:"required"`
	Branch string `json:"branch"`
}

func (b *fileContentsBody) trim() {
	b.Owner = strings.TrimSpace(b.Owner)
	b.Repo = strings.TrimSpace(b.Repo)
	b.Path = strings.TrimSpace(b.Path)
	b.Branch = strings.TrimSpace(b.Branch)
}

// summarizeBody is the body of POST /api/summarize.
type summarizeBody struct {
	Content string `json:"content" validate:"required"`
	Branch  string `json:"branch"`
}

// Content is kept verbatim; only the branch label is trimmed.
func (b *summarizeBody) trim() {
	b.Branch = strings.TrimSpace(b.Branch)
}

// trimmer is implemented by bodies whose fields are trimmed before
// validation, the same way query parameters are.
type trimmer interface {
	trim()
}

// missingMessages are the messages for absent required fields, by wire name.
var missingMessages = map[string]string{
	"owner":   "Missing owner or repo",
	"repo":    "Missing owner or repo",
	"path":    "Missing required params",
	"content": "Missing content",
}

// requestValidator checks decoded parameters against their struct tags and
// reports the first failure as an INVALID_PARAMS error.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("reponame", func(fl validator.FieldLevel) bool {
		return repoNamePattern.MatchString(fl.Field().String())
	})

	return &requestValidator{validate: v}
}

func (rv *requestValidator) Struct(s interface{}) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.New(apperrors.InvalidParams, "Invalid request", err)
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = missingMessages[fe.Field()]
		if msg == "" {
			msg = "Missing required params"
		}
	case "reponame":
		msg = fmt.Sprintf("Invalid %s: only letters, digits, '.', '-' and '_' are allowed", fe.Field())
	case "min":
		msg = fmt.Sprintf("Invalid %s: must be at least %s", fe.Field(), fe.Param())
	case "max":
		msg = fmt.Sprintf("Invalid %s: must be at most %s", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("Invalid %s", fe.Field())
	}
	return apperrors.New(apperrors.InvalidParams, msg, err).
		WithDetails(map[string]string{"field": fe.Field(), "rule": fe.Tag()})
}

// parseRepoQuery reads and validates the listing query.
func (rv *requestValidator) parseRepoQuery(q url.Values) (*repoQuery, error) {
	depth, err := intParam(q, "depth")
	if err != nil {
		return nil, err
	}
	p := &repoQuery{
		Owner:  strings.TrimSpace(q.Get("owner")),
		Repo:   strings.TrimSpace(q.Get("repo")),
		Branch: strings.TrimSpace(q.Get("branch")),
		Depth:  depth,
	}
	if err := rv.Struct(p); err != nil {
		return nil, err
	}
	return p, nil
}

// parseListQuery reads and validates a paginated list query.
func (rv *requestValidator) parseListQuery(q url.Values) (*listQuery, error) {
	page, err := intParam(q, "page")
	if err != nil {
		return nil, err
	}
	perPage, err := intParam(q, "per_page")
	if err != nil {
		return nil, err
	}
	p := &listQuery{
		Owner:   strings.TrimSpace(q.Get("owner")),
		Repo:    strings.TrimSpace(q.Get("repo")),
		Branch:  strings.TrimSpace(q.Get("branch")),
		State:   strings.TrimSpace(q.Get("state")),
		Page:    page,
		PerPage: perPage,
	}
	if err := rv.Struct(p); err != nil {
		return nil, err
	}
	return p, nil
}

// decodeBody reads a JSON body into dst and validates it.
func (rv *requestValidator) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.New(apperrors.InvalidParams, "Request body too large", err)
		case errors.Is(err, io.EOF):
			// An empty body decodes to the zero value; validation reports what is missing.
		default:
			return apperrors.New(apperrors.InvalidParams, "Invalid JSON body", err)
		}
	}
	if t, ok := dst.(trimmer); ok {
		t.trim()
	}
	return rv.Struct(dst)
}

// intParam parses an optional integer query parameter. Absent is zero.
func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.New(apperrors.InvalidParams, fmt.Sprintf("Invalid %s: must be an integer", name), err).
			WithDetails(map[string]string{"field": name, "rule": "integer"})
	}
	return n, nil
}
