package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
)

var (
	// ErrOCRInvalidInput indicates a malformed ingestion request.
	ErrOCRInvalidInput = errors.New("ocr: invalid input")
	// ErrImageTooLarge indicates the upload exceeded the size cap.
	ErrImageTooLarge = errors.New("ocr: image too large")
	// ErrOCRUnrecognised indicates the vision model found no legible menu.
	ErrOCRUnrecognised = errors.New("ocr: menu not recognised")
	// ErrOCRResponseInvalid indicates the vision backend answered with a
	// payload that could not be parsed.
	ErrOCRResponseInvalid = errors.New("ocr: vision response invalid")
	// ErrOCRTimeout indicates the vision call exceeded its deadline.
	ErrOCRTimeout = errors.New("ocr: vision timeout")
)

// OCRUnrecognisedError decorates ErrOCRUnrecognised with the note the vision
// model gave about why the menu could not be read.
type OCRUnrecognisedError struct {
	Notes string
}

func (e *OCRUnrecognisedError) Error() string {
	if e.Notes == "" {
		return ErrOCRUnrecognised.Error()
	}
	return ErrOCRUnrecognised.Error() + ": " + e.Notes
}

func (e *OCRUnrecognisedError) Unwrap() error { return ErrOCRUnrecognised }

// OCRTimeoutNote is the human-readable note surfaced with timeout failures.
const OCRTimeoutNote = "圖片處理時間過長,請嘗試上傳較小的圖片"

// maxImageBytes caps menu photo uploads at 10 MB.
const maxImageBytes = 10 << 20

const defaultVisionTimeout = 240 * time.Second

// OCRServiceDeps bundles collaborators for the ingestion service.
type OCRServiceDeps struct {
	Registry  repositories.Registry
	Resolver  *StoreResolver
	Vision    VisionRecognizer
	Downscale func(data []byte) ([]byte, string, error)
	Timeout   time.Duration
	Clock     Clock
	Logger    Logger
}

// OCRService turns a menu photograph into persisted, translated menu rows
// addressable by temporary item ids.
type OCRService struct {
	registry  repositories.Registry
	resolver  *StoreResolver
	vision    VisionRecognizer
	downscale func(data []byte) ([]byte, string, error)
	timeout   time.Duration
	clock     Clock
	logger    Logger
}

// NewOCRService constructs the ingestion service.
func NewOCRService(deps OCRServiceDeps) (*OCRService, error) {
	if deps.Registry == nil {
		return nil, errors.New("ocr service: registry is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("ocr service: store resolver is required")
	}
	if deps.Vision == nil {
		return nil, errors.New("ocr service: vision recognizer is required")
	}
	downscale := deps.Downscale
	if downscale == nil {
		downscale = func(data []byte) ([]byte, string, error) { return data, "image/jpeg", nil }
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultVisionTimeout
	}
	return &OCRService{
		registry:  deps.Registry,
		resolver:  deps.Resolver,
		vision:    deps.Vision,
		downscale: downscale,
		timeout:   timeout,
		clock:     normalizeClock(deps.Clock),
		logger:    normalizeLogger(deps.Logger),
	}, nil
}

// OCRInput is one ingestion request.
type OCRInput struct {
	Image      []byte
	StoreRaw   string
	LineUserID string
	Lang       string
	SimpleMode bool
}

// OCRItem is one row of the ingestion response. Full mode fills TempID and
// both names; simple mode fills ID and a single name.
type OCRItem struct {
	TempID         string `json:"temp_id,omitempty"`
	ID             string `json:"id,omitempty"`
	OriginalName   string `json:"original_name,omitempty"`
	TranslatedName string `json:"translated_name,omitempty"`
	Name           string `json:"name,omitempty"`
	PriceSmall     int    `json:"price_small"`
	PriceBig       int    `json:"price_big,omitempty"`
	Description    string `json:"description,omitempty"`
}

// OCRResult is the ingestion outcome handed back to the HTTP edge.
type OCRResult struct {
	ProcessingID int64
	StoreID      int64
	StoreName    string
	StoreAddress string
	StorePhone   string
	TargetLang   string
	Simple       bool
	Items        []OCRItem
}

// Ingest runs the full ingestion path: downscale, resolve store and user,
// recognise, persist, and shape the response.
func (s *OCRService) Ingest(ctx context.Context, input OCRInput) (OCRResult, error) {
	if len(input.Image) == 0 {
		return OCRResult{}, fmt.Errorf("%w: image is required", ErrOCRInvalidInput)
	}
	if len(input.Image) > maxImageBytes {
		return OCRResult{}, ErrImageTooLarge
	}
	if strings.TrimSpace(input.StoreRaw) == "" {
		return OCRResult{}, fmt.Errorf("%w: store id is required", ErrOCRInvalidInput)
	}
	lang := NormalizeLang(input.Lang)

	storeID, err := s.resolver.Resolve(ctx, input.StoreRaw)
	if err != nil {
		return OCRResult{}, err
	}
	user, err := s.resolveUser(ctx, input.LineUserID, lang)
	if err != nil {
		return OCRResult{}, err
	}

	image, mimeType, err := s.downscale(input.Image)
	if err != nil {
		return OCRResult{}, fmt.Errorf("%w: %v", ErrOCRInvalidInput, err)
	}

	visionCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	recognition, err := s.vision.RecognizeMenu(visionCtx, image, mimeType, lang)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(visionCtx.Err(), context.DeadlineExceeded) {
			return OCRResult{}, ErrOCRTimeout
		}
		// Unrecognised and unparseable replies keep their sentinel (and
		// any model note) so the edge can answer 422.
		if errors.Is(err, ErrOCRUnrecognised) || errors.Is(err, ErrOCRResponseInvalid) {
			return OCRResult{}, err
		}
		return OCRResult{}, fmt.Errorf("ocr: vision backend: %w", err)
	}
	if len(recognition.Items) == 0 {
		return OCRResult{}, ErrOCRUnrecognised
	}

	now := s.clock()
	menu := domain.OCRMenu{
		UserID:     user.ID,
		StoreID:    &storeID,
		StoreName:  strings.TrimSpace(recognition.StoreName),
		UploadTime: now,
	}
	rows := make([]domain.OCRMenuItem, 0, len(recognition.Items))
	for _, item := range recognition.Items {
		// Nullable strings coerce to empty so rendering never sees null.
		rows = append(rows, domain.OCRMenuItem{
			ItemName:       strings.TrimSpace(item.Name),
			PriceSmall:     maxInt(item.PriceSmall, 0),
			PriceBig:       maxInt(item.PriceBig, 0),
			TranslatedDesc: strings.TrimSpace(item.TranslatedName),
		})
	}

	var savedMenu domain.OCRMenu
	var savedItems []domain.OCRMenuItem
	err = s.registry.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		savedMenu, savedItems, txErr = s.registry.OCRMenus().Insert(ctx, menu, rows)
		if txErr != nil {
			return txErr
		}
		return s.insertTranslations(ctx, savedItems, recognition.Items, lang)
	})
	if err != nil {
		return OCRResult{}, fmt.Errorf("ocr: persist menu: %w", err)
	}

	s.logger(ctx, "ocr.ingested", map[string]any{
		"ocr_menu_id": savedMenu.ID,
		"store_id":    storeID,
		"items":       len(savedItems),
		"lang":        lang,
	})
	result := s.buildResult(savedMenu, savedItems, recognition.Items, storeID, lang, input.SimpleMode)
	result.StoreAddress = strings.TrimSpace(recognition.StoreAddress)
	result.StorePhone = strings.TrimSpace(recognition.StorePhone)
	return result, nil
}

// resolveUser finds or creates the submitting user. Submissions without a
// LINE id get a transient guest row that never passes push validation.
func (s *OCRService) resolveUser(ctx context.Context, lineUserID, lang string) (domain.User, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		lineUserID = fmt.Sprintf("%s%d", domain.GuestUserPrefix, s.clock().UnixMilli())
	}
	user, err := s.registry.Users().FindByLineID(ctx, lineUserID)
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) {
		return domain.User{}, err
	}
	created, err := s.registry.Users().Insert(ctx, domain.User{
		LineUserID:    lineUserID,
		PreferredLang: lang,
		State:         "active",
		CreatedAt:     s.clock(),
	})
	if err == nil {
		return created, nil
	}
	if isConflict(err) {
		return s.registry.Users().FindByLineID(ctx, lineUserID)
	}
	return domain.User{}, err
}

// insertTranslations records the ingestion-time language renderings so later
// menu reads in the same language do not re-translate.
func (s *OCRService) insertTranslations(ctx context.Context, saved []domain.OCRMenuItem, recognized []RecognizedItem, lang string) error {
	if strings.HasPrefix(lang, "zh") || len(saved) != len(recognized) {
		return nil
	}
	translations := make([]domain.OCRMenuTranslation, 0, len(saved))
	for i, row := range saved {
		name := strings.TrimSpace(recognized[i].TranslatedName)
		if name == "" {
			continue
		}
		translations = append(translations, domain.OCRMenuTranslation{
			OCRMenuItemID:  row.ID,
			LangCode:       lang,
			TranslatedName: name,
			TranslatedDesc: strings.TrimSpace(recognized[i].Description),
		})
	}
	if len(translations) == 0 {
		return nil
	}
	return s.registry.OCRMenus().InsertTranslations(ctx, translations)
}

func (s *OCRService) buildResult(menu domain.OCRMenu, saved []domain.OCRMenuItem, recognized []RecognizedItem, storeID int64, lang string, simple bool) OCRResult {
	result := OCRResult{
		ProcessingID: menu.ID,
		StoreID:      storeID,
		StoreName:    menu.StoreName,
		TargetLang:   lang,
		Simple:       simple,
		Items:        make([]OCRItem, 0, len(saved)),
	}
	for i, row := range saved {
		if simple {
			name := row.TranslatedDesc
			if name == "" {
				name = row.ItemName
			}
			result.Items = append(result.Items, OCRItem{
				ID:         fmt.Sprintf("ocr_%d_%d", menu.ID, i),
				Name:       name,
				PriceSmall: row.PriceSmall,
			})
			continue
		}
		item := OCRItem{
			TempID:         fmt.Sprintf("temp_%d_%d", menu.ID, i),
			OriginalName:   row.ItemName,
			TranslatedName: row.TranslatedDesc,
			PriceSmall:     row.PriceSmall,
			PriceBig:       row.PriceBig,
		}
		if i < len(recognized) {
			item.Description = strings.TrimSpace(recognized[i].Description)
		}
		result.Items = append(result.Items, item)
	}
	return result
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
