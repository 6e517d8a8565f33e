package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
	llmx "github.com/showeasy/concierge/agent/llm"
	"github.com/showeasy/concierge/agent/memory"
	"github.com/showeasy/concierge/agent/orchestrator"
	promptx "github.com/showeasy/concierge/agent/prompt"
	"github.com/showeasy/concierge/agent/tool"
	"github.com/showeasy/concierge/agent/variant"
	"github.com/showeasy/concierge/enquiry"
	"github.com/showeasy/concierge/notify"
	configx "github.com/showeasy/concierge/pkg/config"
	_ "github.com/showeasy/concierge/pkg/logger/autoload"
	openrouterx "github.com/showeasy/concierge/pkg/openrouter"
	"github.com/showeasy/concierge/pkg/webpage"
	serverx "github.com/showeasy/concierge/server"
	"github.com/showeasy/concierge/store"
)

type AppConfig struct {
	SiteBaseURL string `envconfig:"SITE_BASE_URL" split_words:"true" default:"https://showeasy.ai"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")
	providerCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	experimentCfg := configx.MustNew[variant.Config]("EXPERIMENT")

	db, err := store.Open(ctx, *configx.MustNew[store.Config]("POSTGRES"))
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer db.Close()
	st := store.New(db)

	history := memory.NewRedisHistory(*configx.MustNew[memory.ShortTermConfig]("UPSTASH_REDIS"))
	var semantic contractx.SemanticMemory
	if mem0Cfg, err := configx.New[memory.LongTermConfig]("MEM0"); err != nil {
		log.Warn().Err(err).Msg("long-term memory disabled")
	} else {
		semantic = memory.NewMem0Client(*mem0Cfg)
	}
	fanin := memory.NewFanin(history, semantic, *configx.MustNew[memory.FaninConfig]("MEMORY"))

	channels := []notify.Channel{notify.LogChannel{}}
	emailCfg := configx.MustNew[notify.EmailConfig]("SMTP")
	if emailCfg.Enabled() {
		channels = append(channels, notify.NewEmailChannel(*emailCfg))
	}
	notifier := notify.NewFanout(channels...)

	registry, err := tool.NewCatalog(tool.Deps{
		Events:    st,
		Enquiries: st,
		Notifier:  notifier,
		BaseURL:   appCfg.SiteBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build tool catalog")
	}

	prompts := promptx.LoadPromptSet()

	svc, err := orchestrator.NewService(ctx, orchestrator.Deps{
		Provider:    *providerCfg,
		LLM:         *llmCfg,
		Experiments: *experimentCfg,
		Prompts:     prompts,
		Tools:       registry,
		Fanin:       fanin,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build chat service")
	}
	defer svc.Close()

	analyzerModel := llmCfg.GuardrailModel
	if analyzerModel == "" {
		analyzerModel = providerCfg.Model
	}
	analyzer := enquiry.NewAnalyzer(openrouterx.NewClient(*providerCfg), analyzerModel, prompts.EnquiryAnalyzer)
	replies := enquiry.NewService(st, analyzer, history)

	pages := webpage.NewFetcher(*configx.MustNew[webpage.Config]("WEBPAGE"))

	srvCfg := configx.MustNew[serverx.Config]("SERVER")
	httpServer := &http.Server{
		Addr:         srvCfg.Addr,
		Handler:      serverx.New(svc, replies, pages).Router(),
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srvCfg.Addr).Msg("concierge listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
