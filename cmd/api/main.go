package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/handlers"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/auth"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/config"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/events"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/imageproc"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/linepush"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/observability"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/secrets"
	platformstorage "github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/storage"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/tasks"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/translate"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/tts"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/vision"
	bunrepo "github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories/bun"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/services"

	"github.com/oklog/ulid/v2"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api").With(zap.String("instance", ulid.Make().String()))
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(os.Getenv("GOOGLE_CLOUD_PROJECT")),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	projectID := strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))
	if projectID == "" {
		projectID = cfg.Tasks.ProjectID
	}

	db, err := bunrepo.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("database close error", zap.Error(err))
		}
	}()

	registry := bunrepo.NewRegistry(db)
	if err := registry.CreateSchema(ctx); err != nil {
		logger.Fatal("failed to prepare database schema", zap.Error(err))
	}

	var uploader services.VoiceUploader
	var evictor services.RemoteEvictor
	if strings.TrimSpace(cfg.Storage.BucketName) != "" {
		storageClient, err := platformstorage.NewClient(ctx, cfg.Storage.BucketName, []platformstorage.ClientOption{
			platformstorage.WithRegion(cfg.Storage.Region),
			platformstorage.WithProject(projectID),
		})
		if err != nil {
			logger.Warn("storage client init failed; voice files stay local", zap.Error(err))
		} else {
			defer func() {
				if err := storageClient.Close(); err != nil {
					logger.Warn("storage close error", zap.Error(err))
				}
			}()
			if err := storageClient.EnsureBucket(ctx); err != nil {
				logger.Warn("voice bucket not ready", zap.Error(err))
			} else {
				logger.Info("voice bucket ready", zap.String("bucket", storageClient.Bucket()))
			}
			uploader = storageClient
			evictor = storageClient
		}
	} else {
		logger.Warn("voice bucket not configured; voice files served from the local scratch directory")
	}

	var recognizer services.VisionRecognizer = visionDisabled{}
	if strings.TrimSpace(cfg.Vision.APIKey) != "" {
		visionClient, err := vision.NewClient(ctx, cfg.Vision.APIKey, cfg.Vision.Model)
		if err != nil {
			logger.Fatal("failed to initialise vision client", zap.Error(err))
		}
		defer func() {
			if err := visionClient.Close(); err != nil {
				logger.Warn("vision close error", zap.Error(err))
			}
		}()
		recognizer = visionRecognizer{client: visionClient}
	} else {
		logger.Warn("vision api key not configured; menu OCR uploads will fail")
	}

	var translator services.Translator
	if strings.TrimSpace(cfg.Translation.APIKey) != "" {
		translateClient, err := translate.NewClient(ctx, cfg.Translation.APIKey)
		if err != nil {
			logger.Warn("translation client init failed; summaries stay untranslated", zap.Error(err))
		} else {
			defer func() {
				if err := translateClient.Close(); err != nil {
					logger.Warn("translation close error", zap.Error(err))
				}
			}()
			translator = translateClient
		}
	} else {
		logger.Warn("translation api key not configured; summaries stay untranslated")
	}

	var synthesizer services.SpeechSynthesizer
	ttsClient, err := tts.NewClient(ctx, cfg.TTS.CredentialsFile, tts.WithVoice(cfg.TTS.Voice))
	if err != nil {
		logger.Warn("tts client init failed; orders deliver text only", zap.Error(err))
	} else {
		defer func() {
			if err := ttsClient.Close(); err != nil {
				logger.Warn("tts close error", zap.Error(err))
			}
		}()
		synthesizer = ttsClient
	}

	var pusher services.LinePusher
	if strings.TrimSpace(cfg.Line.ChannelAccessToken) != "" {
		lineClient, err := linepush.NewClient(cfg.Line.ChannelAccessToken)
		if err != nil {
			logger.Warn("line client init failed; push delivery disabled", zap.Error(err))
		} else {
			pusher = linePusher{client: lineClient}
		}
	} else {
		logger.Warn("line channel token not configured; push delivery disabled")
	}

	var enqueuer services.TaskEnqueuer
	if strings.TrimSpace(cfg.Tasks.ProjectID) != "" && strings.TrimSpace(cfg.Tasks.Queue) != "" {
		taskEnqueuer, err := tasks.NewEnqueuer(ctx, tasks.Config{
			ProjectID:    cfg.Tasks.ProjectID,
			Location:     cfg.Tasks.Location,
			Queue:        cfg.Tasks.Queue,
			ServiceURL:   cfg.Tasks.ServiceURL,
			InvokerEmail: cfg.Tasks.InvokerServiceAccount,
		})
		if err != nil {
			logger.Warn("cloud tasks init failed; orders process in-process", zap.Error(err))
		} else {
			defer func() {
				if err := taskEnqueuer.Close(); err != nil {
					logger.Warn("cloud tasks close error", zap.Error(err))
				}
			}()
			enqueuer = taskEnqueuer
		}
	} else {
		logger.Warn("task queue not configured; orders process in-process")
	}

	var publisher services.EventPublisher
	if strings.TrimSpace(cfg.Events.ProjectID) != "" && strings.TrimSpace(cfg.Events.TopicID) != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Warn("pubsub client init failed; lifecycle events disabled", zap.Error(err))
		} else {
			defer func() {
				if err := pubsubClient.Close(); err != nil {
					logger.Warn("pubsub close error", zap.Error(err))
				}
			}()
			topic := pubsubClient.Topic(cfg.Events.TopicID)
			defer topic.Stop()
			pubsubPublisher, err := events.NewPubSubPublisher(topic)
			if err != nil {
				logger.Warn("order event publisher init failed; lifecycle events disabled", zap.Error(err))
			} else {
				publisher = orderEventPublisher{publisher: pubsubPublisher}
			}
		}
	}

	resolver, err := services.NewStoreResolver(services.StoreResolverDeps{
		Stores:     registry.Stores(),
		UnitOfWork: registry,
		Clock:      time.Now,
		Logger:     serviceLogger(logger.Named("stores")),
	})
	if err != nil {
		logger.Fatal("failed to initialise store resolver", zap.Error(err))
	}

	translation, err := services.NewTranslationService(services.TranslationServiceDeps{
		Backend: translator,
		Logger:  serviceLogger(logger.Named("translate")),
	})
	if err != nil {
		logger.Fatal("failed to initialise translation service", zap.Error(err))
	}

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Registry:    registry,
		Translation: translation,
		Logger:      serviceLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	ocr, err := services.NewOCRService(services.OCRServiceDeps{
		Registry:  registry,
		Resolver:  resolver,
		Vision:    recognizer,
		Downscale: imageproc.Downscale,
		Timeout:   cfg.Vision.Timeout,
		Clock:     time.Now,
		Logger:    serviceLogger(logger.Named("ocr")),
	})
	if err != nil {
		logger.Fatal("failed to initialise ocr service", zap.Error(err))
	}

	voice, err := services.NewVoiceService(services.VoiceServiceDeps{
		TTS:          synthesizer,
		Uploader:     uploader,
		Evictor:      evictor,
		VoiceDir:     cfg.Storage.VoiceDir,
		BaseURL:      cfg.Server.BaseURL,
		MaxAge:       cfg.Storage.VoiceMaxAge,
		MemoryBudget: cfg.TTS.MemoryBudgetBytes,
		Clock:        time.Now,
		Logger:       serviceLogger(logger.Named("voice")),
	})
	if err != nil {
		logger.Fatal("failed to initialise voice service", zap.Error(err))
	}

	push, err := services.NewPushService(services.PushServiceDeps{
		Pusher: pusher,
		Logger: serviceLogger(logger.Named("push")),
	})
	if err != nil {
		logger.Fatal("failed to initialise push service", zap.Error(err))
	}

	pipeline, err := services.NewPipelineService(services.PipelineServiceDeps{
		Registry:    registry,
		Translation: translation,
		Voice:       voice,
		Push:        push,
		Events:      publisher,
		Clock:       time.Now,
		Logger:      serviceLogger(logger.Named("pipeline")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order pipeline", zap.Error(err))
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Registry:  registry,
		Resolver:  resolver,
		Tasks:     enqueuer,
		Processor: pipeline,
		BaseURL:   cfg.Server.BaseURL,
		Clock:     time.Now,
		Logger:    serviceLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(registry.Health())
	storeHandlers := handlers.NewStoreHandlers(catalog, resolver)
	menuHandlers := handlers.NewMenuHandlers(catalog, ocr)
	i18nHandlers := handlers.NewI18nHandlers(registry.Languages(), translation)
	voiceHandlers := handlers.NewVoiceHandlers(cfg.Storage.VoiceDir)
	orderHandlers := handlers.NewOrderHandlers(orders)
	taskHandlers := handlers.NewTaskHandlers(pipeline)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			handlers.CORSMiddleware(cfg.CORS.AllowedOrigins),
			observability.TraceMiddleware(projectID),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(projectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(handlers.CombineRoutes(
			storeHandlers.Routes,
			menuHandlers.Routes,
			i18nHandlers.Routes,
			voiceHandlers.Routes,
		)),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithTaskRoutes(taskHandlers.Routes),
		handlers.WithTaskMiddlewares(buildTaskOIDCMiddleware(logger.Named("auth"), cfg)),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("ordering helper api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// serviceLogger bridges the services logging contract onto a named zap logger.
func serviceLogger(logger *zap.Logger) services.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info("service event", zFields...)
	}
}

func buildTaskOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Security.OIDC.Audience) == "" {
		logger.Warn("auth: oidc audience not configured; task callbacks will be rejected")
	}
	if strings.TrimSpace(cfg.Security.OIDC.InvokerEmail) == "" {
		logger.Warn("auth: task invoker email not configured; task callbacks will be rejected")
	}

	adapter := observability.NewPrintfAdapter(logger)
	cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL, auth.WithJWKSLogger(adapter))
	validator := auth.NewOIDCValidator(cache, auth.WithOIDCLogger(adapter))
	return validator.RequireTaskOIDC(cfg.Security.OIDC.Audience, cfg.Security.OIDC.Issuers, cfg.Security.OIDC.InvokerEmail)
}

// visionRecognizer adapts the Gemini client to the neutral recognition shape
// the ingestion service consumes.
type visionRecognizer struct {
	client *vision.Client
}

func (v visionRecognizer) RecognizeMenu(ctx context.Context, image []byte, mimeType, targetLang string) (services.MenuRecognition, error) {
	result, err := v.client.RecognizeMenu(ctx, image, mimeType, targetLang)
	if err != nil {
		var unrecognised *vision.UnrecognisedError
		switch {
		case errors.As(err, &unrecognised):
			return services.MenuRecognition{}, &services.OCRUnrecognisedError{Notes: unrecognised.Notes}
		case errors.Is(err, vision.ErrUnrecognised):
			return services.MenuRecognition{}, services.ErrOCRUnrecognised
		case errors.Is(err, vision.ErrResponseInvalid):
			return services.MenuRecognition{}, fmt.Errorf("%w: %v", services.ErrOCRResponseInvalid, err)
		}
		return services.MenuRecognition{}, err
	}
	recognition := services.MenuRecognition{
		StoreName:    result.StoreInfo.Name,
		StoreAddress: result.StoreInfo.Address,
		StorePhone:   result.StoreInfo.Phone,
		Items:        make([]services.RecognizedItem, 0, len(result.Items)),
	}
	for _, item := range result.Items {
		recognition.Items = append(recognition.Items, services.RecognizedItem{
			Name:           item.Name,
			TranslatedName: item.TranslatedName,
			PriceSmall:     item.PriceSmall,
			PriceBig:       item.PriceBig,
			Description:    item.Description,
		})
	}
	return recognition, nil
}

// visionDisabled stands in when no vision backend is configured.
type visionDisabled struct{}

func (visionDisabled) RecognizeMenu(context.Context, []byte, string, string) (services.MenuRecognition, error) {
	return services.MenuRecognition{}, errors.New("vision backend not configured")
}

// linePusher adapts the LINE messaging client to the push service contract.
type linePusher struct {
	client *linepush.Client
}

func (p linePusher) Push(_ context.Context, userID, text, audioURL string, durationMS int) error {
	var audio *linepush.Audio
	if strings.TrimSpace(audioURL) != "" {
		audio = &linepush.Audio{URL: audioURL, DurationMS: durationMS}
	}
	return p.client.Push(userID, []linepush.Message{{Text: text}}, audio)
}

// orderEventPublisher maps lifecycle events onto the Pub/Sub payload.
type orderEventPublisher struct {
	publisher *events.PubSubPublisher
}

func (p orderEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderLifecycleEvent) (string, error) {
	return p.publisher.PublishOrderEvent(ctx, events.OrderEvent{
		Type:       event.Type,
		OrderID:    event.OrderID,
		StoreID:    event.StoreID,
		LineUserID: event.LineUserID,
		Total:      event.Total,
		Reason:     event.Reason,
		OccurredAt: event.OccurredAt,
	})
}
