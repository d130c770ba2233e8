package vision

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/chat"
	"agentd/internal/config"
	"agentd/internal/lifecycle"
	"agentd/internal/registry"
)

// Lifecycle component names for the vision stack. Each loads and idles out
// independently: OCR is cheap and frequent, the caption model is not.
const (
	ComponentOCR         = "ocr_engine"
	ComponentVisionModel = "vision_model"
	ComponentDetector    = "object_detector"
)

const (
	estOCRMB         = 50
	estVisionModelMB = 1400
	estDetectorMB    = 50
)

// OCR extracts text from an image file.
type OCR interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// ObjectDetector locates objects in an image file.
type ObjectDetector interface {
	Detect(ctx context.Context, path string) ([]Detection, error)
}

// Captioner describes an image in natural language.
type Captioner interface {
	Caption(ctx context.Context, question, ocrText string) (string, error)
	Close() error
}

// Request asks for analysis of one image.
type Request struct {
	// ImagePath is the file to analyze; empty means capture the screen first.
	ImagePath string `json:"image_path"`
	// Question steers the caption model; phrases like "describe" or
	// "analyze" trigger captioning.
	Question string `json:"question"`
	// Detect requests object detection in addition to OCR.
	Detect bool `json:"detect"`
}

// Report is the combined analysis result. Warnings carry non-fatal stage
// failures: OCR text is still useful when the caption model is missing.
type Report struct {
	ImagePath  string        `json:"image_path"`
	Text       string        `json:"text"`
	Caption    string        `json:"caption,omitempty"`
	Detections []Detection   `json:"detections,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Options configures the vision service.
type Options struct {
	Config    config.VisionConfig
	AI        config.AIConfig
	Paths     config.Paths
	Lifecycle *lifecycle.Manager
	Catalog   *registry.Catalog
	Logger    zerolog.Logger
	// Test overrides for the three component loaders.
	OCRLoader       func() (OCR, error)
	CaptionerLoader func() (Captioner, error)
	DetectorLoader  func() (ObjectDetector, error)
}

// Service runs image analysis over lazily loaded components.
type Service struct {
	cfg    config.VisionConfig
	paths  config.Paths
	lc     *lifecycle.Manager
	logger zerolog.Logger

	detectorRegistered bool
}

// New builds the service and registers the OCR, caption, and detector
// components. The detector is registered only when a binary is configured.
func New(opts Options) (*Service, error) {
	s := &Service{
		cfg:    opts.Config,
		paths:  opts.Paths,
		lc:     opts.Lifecycle,
		logger: opts.Logger,
	}

	ocrLoader := opts.OCRLoader
	if ocrLoader == nil {
		bin := opts.Config.TesseractBin
		ocrLoader = func() (OCR, error) { return newOCREngine(bin) }
	}
	s.lc.Register(ComponentOCR, lifecycle.Component{
		EstMemoryMB: estOCRMB,
		Loader:      func() (any, error) { return ocrLoader() },
	})

	capLoader := opts.CaptionerLoader
	if capLoader == nil {
		factory, err := chat.NewRuntimeFactory(opts.AI, opts.Logger)
		if err != nil {
			return nil, err
		}
		ai := opts.AI
		catalog := opts.Catalog
		capLoader = func() (Captioner, error) {
			if err := catalog.Rescan(); err != nil {
				return nil, err
			}
			model, ok := catalog.Find(ai.VisionModel)
			if !ok {
				return nil, fmt.Errorf("vision model not found: %s (looked in %s)", ai.VisionModel, catalog.Dir())
			}
			rt, err := factory(model.Path)
			if err != nil {
				return nil, err
			}
			return &modelCaptioner{rt: rt, params: chat.Params{
				MaxTokens:   ai.MaxTokens,
				Temperature: ai.Temperature,
				TopP:        ai.TopP,
			}}, nil
		}
	}
	s.lc.Register(ComponentVisionModel, lifecycle.Component{
		EstMemoryMB: estVisionModelMB,
		Loader:      func() (any, error) { return capLoader() },
		Unloader: func(inst any) error {
			return inst.(Captioner).Close()
		},
	})

	detLoader := opts.DetectorLoader
	if detLoader == nil && opts.Config.DetectorBin != "" {
		bin := opts.Config.DetectorBin
		detLoader = func() (ObjectDetector, error) { return newDetector(bin) }
	}
	if detLoader != nil {
		s.detectorRegistered = true
		s.lc.Register(ComponentDetector, lifecycle.Component{
			EstMemoryMB: estDetectorMB,
			Loader:      func() (any, error) { return detLoader() },
		})
	}
	return s, nil
}

// Analyze runs OCR on the request image, plus captioning and detection when
// asked for. OCR failure fails the request; the other stages degrade to
// warnings so a missing caption model never hides extracted text.
func (s *Service) Analyze(ctx context.Context, req Request) (Report, error) {
	start := time.Now()

	path := req.ImagePath
	if path == "" {
		captured, err := CaptureScreen(ctx, s.paths.Screenshots)
		if err != nil {
			return Report{}, fmt.Errorf("capture screen: %w", err)
		}
		path = captured
	}
	if err := s.checkImage(path); err != nil {
		return Report{}, err
	}

	rep := Report{ImagePath: path}

	ocr, err := lifecycle.As[OCR](s.lc.Acquire(ctx, ComponentOCR))
	if err != nil {
		return Report{}, err
	}
	text, err := ocr.Recognize(ctx, path)
	s.armTimer(ComponentOCR, s.cfg.OCRIdle)
	if err != nil {
		return Report{}, fmt.Errorf("ocr: %w", err)
	}
	rep.Text = text

	if wantsCaption(req.Question) {
		captioner, err := lifecycle.As[Captioner](s.lc.Acquire(ctx, ComponentVisionModel))
		if err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("caption: %v", err))
		} else {
			caption, err := captioner.Caption(ctx, req.Question, text)
			s.armTimer(ComponentVisionModel, s.cfg.ModelIdle)
			if err != nil {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("caption: %v", err))
			} else {
				rep.Caption = caption
			}
		}
	}

	if req.Detect {
		if !s.detectorRegistered {
			rep.Warnings = append(rep.Warnings, "detection: no detector configured")
		} else if det, err := lifecycle.As[ObjectDetector](s.lc.Acquire(ctx, ComponentDetector)); err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("detection: %v", err))
		} else {
			dets, err := det.Detect(ctx, path)
			s.armTimer(ComponentDetector, s.cfg.DetectorIdle)
			if err != nil {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("detection: %v", err))
			} else {
				rep.Detections = dets
			}
		}
	}

	rep.Duration = time.Since(start)
	return rep, nil
}

// Screenshot captures the screen without analyzing it.
func (s *Service) Screenshot(ctx context.Context) (string, error) {
	return CaptureScreen(ctx, s.paths.Screenshots)
}

func (s *Service) armTimer(component string, idle time.Duration) {
	if err := s.lc.ScheduleEviction(component, idle); err != nil {
		s.logger.Warn().Err(err).Str("component", component).Msg("schedule eviction failed")
	}
}

func (s *Service) checkImage(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if max := int64(s.cfg.MaxImageSizeMB); max > 0 && fi.Size() > max<<20 {
		return fmt.Errorf("image too large: %d bytes (limit %d MB)", fi.Size(), max)
	}
	return nil
}

// wantsCaption reports whether the question calls for the caption model.
func wantsCaption(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range []string{"describe", "analyze", "analyse", "what is", "what's", "explain", "summarize"} {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// modelCaptioner answers image questions with a language model grounded on
// the OCR text extracted from the image.
type modelCaptioner struct {
	rt     chat.ModelRuntime
	params chat.Params
}

func (m *modelCaptioner) Caption(ctx context.Context, question, ocrText string) (string, error) {
	var b strings.Builder
	b.WriteString("You are a vision assistant. Text extracted from the image:\n")
	b.WriteString(ocrText)
	b.WriteString("\n\nQuestion: ")
	if question == "" {
		question = "Describe what is on the screen."
	}
	b.WriteString(question)
	b.WriteString("\n\nAnswer: ")
	return m.rt.Complete(ctx, b.String(), m.params)
}

func (m *modelCaptioner) Close() error { return m.rt.Close() }
