package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"github.com/rs/zerolog"
)

// ImportEML reads RFC 822 message files (or directories of *.eml files) and
// converts them into unprocessed records. Files that cannot be parsed are
// logged and skipped.
func ImportEML(paths []string, log zerolog.Logger) ([]Email, error) {
	files, err := expandEMLPaths(paths)
	if err != nil {
		return nil, err
	}

	var out []Email
	for _, path := range files {
		e, err := parseEMLFile(path, log)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping message file")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func expandEMLPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.eml"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func parseEMLFile(path string, log zerolog.Logger) (Email, error) {
	f, err := os.Open(path)
	if err != nil {
		return Email{}, err
	}
	defer f.Close()

	env, err := enmime.ReadEnvelope(f)
	if err != nil {
		return Email{}, fmt.Errorf("parsing MIME message: %w", err)
	}
	for _, perr := range env.Errors {
		log.Debug().Str("path", path).Str("mime_error", perr.Error()).Msg("recoverable MIME problem")
	}

	id := strings.Trim(strings.TrimSpace(env.GetHeader("Message-ID")), "<>")
	if id == "" {
		id = uuid.NewString()
	}

	date, err := parseDateHeader(env.GetHeader("Date"))
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("unparsable Date header, using file time")
		if info, statErr := os.Stat(path); statErr == nil {
			date = info.ModTime()
		} else {
			date = time.Now()
		}
	}

	body := env.Text
	if strings.TrimSpace(body) == "" {
		body = env.HTML
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")

	return NewEmail(id, env.GetHeader("From"), env.GetHeader("Subject"), body, date.Format(time.RFC3339))
}

var dateHeaderLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

var dateHeaderFallbackLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	time.RFC822,
}

// parseDateHeader tries the layouts mail clients actually emit, then retries
// with a trailing "(TZ)" comment removed.
func parseDateHeader(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("missing Date header")
	}
	for _, layout := range dateHeaderLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	noTZParen := value
	if openParen := strings.LastIndex(noTZParen, " ("); openParen != -1 {
		if closeParen := strings.LastIndex(noTZParen, ")"); closeParen > openParen {
			noTZParen = noTZParen[:openParen] + noTZParen[closeParen+1:]
		}
	}
	noTZParen = strings.TrimSpace(noTZParen)
	for _, layout := range dateHeaderFallbackLayouts {
		if t, err := time.Parse(layout, noTZParen); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q", value)
}
