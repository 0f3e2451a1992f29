package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxNameLength       int
	MaxThesisLength     int
	MaxNotesLength      int
	MaxListSize         int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// rule validates the JSON body of one route.
type rule struct {
	method string
	match  func(path string) bool
	check  func(body map[string]any, cfg Config) error
}

var rules = []rule{
	{fiber.MethodPost, suffix("/enrich"), checkEnrich},
	{fiber.MethodPost, suffix("/lists"), checkCreateList},
	{fiber.MethodPut, segment("/lists/", ""), checkUpdateList},
	{fiber.MethodPost, segment("/lists/", "/toggle"), checkToggle},
	{fiber.MethodPost, suffix("/searches"), checkSaveSearch},
	{fiber.MethodPost, suffix("/user/thesis"), checkThesis},
	{fiber.MethodPost, segment("/companies/", "/notes"), checkNotes},
	{fiber.MethodPost, suffix("/auth/register"), checkCredentials},
	{fiber.MethodPost, suffix("/auth/login"), checkCredentials},
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxNameLength == 0 {
		cfg.MaxNameLength = 120
	}
	if cfg.MaxThesisLength == 0 {
		cfg.MaxThesisLength = 5000
	}
	if cfg.MaxNotesLength == 0 {
		cfg.MaxNotesLength = 20000
	}
	if cfg.MaxListSize == 0 {
		cfg.MaxListSize = 1000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != fiber.MethodPost && method != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		path := strings.TrimSuffix(c.Path(), "/")
		for _, r := range rules {
			if r.method != method || !r.match(path) {
				continue
			}

			var body map[string]any
			if err := c.BodyParser(&body); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}
			if err := r.check(body, cfg); err != nil {
				cfg.Logger.Debug("Request rejected by validation",
					zap.String("path", path),
					zap.String("ip", c.IP()),
					zap.Error(err),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			break
		}

		return c.Next()
	}
}

func checkEnrich(body map[string]any, _ Config) error {
	if _, err := requiredString(body, "companyId"); err != nil {
		return err
	}
	website, present, err := optionalString(body, "website")
	if err != nil {
		return err
	}
	if present && website != "" && !isValidURL(website) {
		return errors.New("website must be an http or https url")
	}
	return nil
}

func checkCreateList(body map[string]any, cfg Config) error {
	name, err := requiredString(body, "name")
	if err != nil {
		return err
	}
	return checkName(name, cfg)
}

func checkUpdateList(body map[string]any, cfg Config) error {
	name, present, err := optionalString(body, "name")
	if err != nil {
		return err
	}
	if present {
		if err := checkName(name, cfg); err != nil {
			return err
		}
	}

	raw, ok := body["companies"]
	if !ok || raw == nil {
		return nil
	}
	ids, ok := raw.([]any)
	if !ok {
		return errors.New("companies must be an array of strings")
	}
	if len(ids) > cfg.MaxListSize {
		return fmt.Errorf("a list holds at most %d companies", cfg.MaxListSize)
	}
	for _, id := range ids {
		if _, ok := id.(string); !ok {
			return errors.New("companies must be an array of strings")
		}
	}
	return nil
}

func checkToggle(body map[string]any, _ Config) error {
	_, err := requiredString(body, "companyId")
	return err
}

func checkSaveSearch(body map[string]any, cfg Config) error {
	name, err := requiredString(body, "name")
	if err != nil {
		return err
	}
	if err := checkName(name, cfg); err != nil {
		return err
	}
	if _, _, err := optionalString(body, "query"); err != nil {
		return err
	}
	for _, key := range []string{"stages", "industries"} {
		raw, ok := body[key]
		if !ok || raw == nil {
			continue
		}
		values, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("%s must be an array of strings", key)
		}
		for _, v := range values {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%s must be an array of strings", key)
			}
		}
	}
	return nil
}

func checkThesis(body map[string]any, cfg Config) error {
	thesis, _, err := optionalString(body, "thesis")
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(thesis) > cfg.MaxThesisLength {
		return fmt.Errorf("thesis exceeds %d characters", cfg.MaxThesisLength)
	}
	return nil
}

func checkNotes(body map[string]any, cfg Config) error {
	notes, _, err := optionalString(body, "notes")
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(notes) > cfg.MaxNotesLength {
		return fmt.Errorf("notes exceed %d characters", cfg.MaxNotesLength)
	}
	return nil
}

func checkCredentials(body map[string]any, _ Config) error {
	if _, err := requiredString(body, "email"); err != nil {
		return err
	}
	_, err := requiredString(body, "password")
	return err
}

func checkName(name string, cfg Config) error {
	if utf8.RuneCountInString(name) > cfg.MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", cfg.MaxNameLength)
	}
	if containsXSS(name) {
		return errors.New("invalid name content")
	}
	return nil
}

func requiredString(body map[string]any, key string) (string, error) {
	s, present, err := optionalString(body, key)
	if err != nil {
		return "", err
	}
	if !present || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

func optionalString(body map[string]any, key string) (string, bool, error) {
	raw, ok := body[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("%s must be a string", key)
	}
	return s, true, nil
}

func suffix(s string) func(string) bool {
	return func(path string) bool { return strings.HasSuffix(path, s) }
}

// segment matches paths of the form ...<prefix><one segment><tail>.
func segment(prefix, tail string) func(string) bool {
	return func(path string) bool {
		i := strings.LastIndex(path, prefix)
		if i < 0 {
			return false
		}
		rest := path[i+len(prefix):]
		if tail != "" {
			if !strings.HasSuffix(rest, tail) {
				return false
			}
			rest = strings.TrimSuffix(rest, tail)
		}
		return rest != "" && !strings.Contains(rest, "/")
	}
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if u.Host == "" {
		return false
	}

	return true
}
