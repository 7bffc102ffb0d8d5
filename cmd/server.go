package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/gcottom/go-zaplog"
	"github.com/gcottom/qgin/qgin"
	"github.com/gcottom/semaphore"
	"github.com/gin-contrib/cors"
	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"bandcampdl/config"
	"bandcampdl/internal/handlers"
	"bandcampdl/internal/mediatool"
	"bandcampdl/internal/services/extract"
	"bandcampdl/internal/services/postprocess"
	"bandcampdl/internal/services/session"
	"bandcampdl/pkg/bandcamp"
)

func init() {
	c := color.New(color.FgCyan)
	c.Print(`
:::::::::   ::::::::               :::::::::  :::
:+:    :+: :+:    :+:              :+:    :+: :+:
+:+    +:+ +:+                     +:+    +:+ +:+
+#++:++#+  +#+        +#++:++#+    +#+    +:+ +#+
+#+    +#+ +#+                     +#+    +#+ +#+
#+#    #+# #+#    #+#              #+#    #+# #+#
#########   ########               #########  ##########
|------------------------------------------------------|
|          Bandcamp Album Download Service v1.0         |
|------------------------------------------------------|
   `)
}

func main() {
	if err := RunServer(); err != nil {
		panic(err)
	}
}

func RunServer() error {
	ctx := zaplog.CreateAndInject(context.Background())
	zaplog.InfoC(ctx, "starting download server...")

	cfg, err := config.LoadConfigFromFile("")
	if err != nil {
		zaplog.ErrorC(ctx, "failed to load config", zap.Error(err))
		return err
	}

	zaplog.InfoC(ctx, "ensuring yt-dlp is installed...")
	ytdlp.MustInstall(ctx, nil)

	zaplog.InfoC(ctx, "creating extraction service...")
	client := bandcamp.NewClient()
	extractService := &extract.Service{
		Client:       client,
		ProbeLimiter: semaphore.NewSemaphore(cfg.ProbeLimit),
	}

	zaplog.InfoC(ctx, "creating postprocess service...")
	postprocessService := &postprocess.Service{
		Media: mediatool.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath),
	}

	zaplog.InfoC(ctx, "creating session service...")
	sessionService := &session.Service{
		DownloadLimiter: semaphore.NewSemaphore(cfg.DownloadLimit),
		Queue:           make(chan string, 100),
		StatusMap:       new(sync.Map),
		Sessions:        new(sync.Map),
		Client:          client,
		Extractor:       extractService,
		Post:            postprocessService,
		Config:          cfg,
	}

	zaplog.InfoC(ctx, "creating gin engine...")
	ginws := qgin.NewGinEngine(&ctx, &qgin.Config{
		UseContextMW:       true,
		UseLoggingMW:       true,
		UseRequestIDMW:     false,
		InjectRequestIDCTX: false,
		LogRequestID:       false,
		ProdMode:           true,
	})
	ginws.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	zaplog.InfoC(ctx, "setting up routes...")
	handlers.SetupRoutes(ginws, sessionService)

	zaplog.InfoC(ctx, "starting session queue processor...")
	go sessionService.QueueProcessor()

	zaplog.InfoC(ctx, "setup complete, starting server...")
	zaplog.InfoC(ctx, "now listening and serving", zap.String("addr", cfg.ListenAddr))
	return http.ListenAndServe(cfg.ListenAddr, ginws)
}
