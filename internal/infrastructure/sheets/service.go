package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/usecase"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	defaultTimeout   = 10 * time.Second
	spreadsheetMime  = "application/vnd.google-apps.spreadsheet"
	valueInputOption = "USER_ENTERED"
)

type Config struct {
	CredentialsFile string
	Timeout         time.Duration
	Logger          *logging.Logger
	// ClientOptions are appended after the credentials option.
	ClientOptions []option.ClientOption
}

// Service opens Google spreadsheets by ID or by Drive file name.
type Service struct {
	sheets  *gsheets.Service
	drive   *drive.Service
	timeout time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	resolved map[string]string
}

func NewService(ctx context.Context, cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := make([]option.ClientOption, 0, len(cfg.ClientOptions)+2)
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", usecase.ErrMissingCredentials, path, err)
		}
		opts = append(opts, option.WithCredentialsFile(path))
	}
	opts = append(opts, option.WithScopes(gsheets.SpreadsheetsScope, drive.DriveReadonlyScope))
	opts = append(opts, cfg.ClientOptions...)

	sheetsSvc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create sheets client: %w", usecase.ErrMissingCredentials, err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create drive client: %w", usecase.ErrMissingCredentials, err)
	}

	return &Service{
		sheets:   sheetsSvc,
		drive:    driveSvc,
		timeout:  cfg.Timeout,
		logger:   logger,
		resolved: make(map[string]string),
	}, nil
}

// Open returns the spreadsheet with spreadsheetID, or the one named name
// when the ID is blank.
func (s *Service) Open(ctx context.Context, spreadsheetID, name string) (*Workbook, error) {
	id := strings.TrimSpace(spreadsheetID)
	if id == "" {
		var err error
		if id, err = s.resolve(ctx, name); err != nil {
			return nil, err
		}
	}
	return &Workbook{svc: s, id: id}, nil
}

// GridSource opens worksheet of the spreadsheet on every call. An empty
// worksheet selects the first sheet.
func (s *Service) GridSource(spreadsheetID, name, worksheet string) usecase.GridSource {
	return usecase.GridSourceFunc(func(ctx context.Context) (tipping.Grid, error) {
		wb, err := s.Open(ctx, spreadsheetID, name)
		if err != nil {
			return nil, err
		}
		return wb.Worksheet(ctx, worksheet)
	})
}

func (s *Service) WorkbookSource(spreadsheetID, name string) usecase.WorkbookSource {
	return usecase.WorkbookSourceFunc(func(ctx context.Context) (tipping.Workbook, error) {
		return s.Open(ctx, spreadsheetID, name)
	})
}

func (s *Service) resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: neither spreadsheet id nor name configured", usecase.ErrSheetNotFound)
	}

	s.mu.Lock()
	id, ok := s.resolved[name]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", strings.ReplaceAll(name, "'", `\'`), spreadsheetMime)
	list, err := s.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError(err, "resolve spreadsheet %q", name)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: no spreadsheet named %q", usecase.ErrSheetNotFound, name)
	}

	id = list.Files[0].Id
	s.mu.Lock()
	s.resolved[name] = id
	s.mu.Unlock()
	s.logger.Info("resolved spreadsheet by name", "name", name, "spreadsheet_id", id)
	return id, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// wrapAPIError maps Google API failures onto the grid error taxonomy.
func wrapAPIError(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w: %s: %w", usecase.ErrGridAccess, usecase.ErrSheetNotFound, what, err)
	}
	return fmt.Errorf("%w: %s: %w", usecase.ErrGridAccess, what, err)
}
