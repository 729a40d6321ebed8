package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/livepeer/livepeer-data/pkg/mistconnector"

	"github.com/livepeer/catalyst-api/api"
	"github.com/livepeer/catalyst-api/autodetect"
	"github.com/livepeer/catalyst-api/batch"
	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/handlers"
	"github.com/livepeer/catalyst-api/metrics"
	"github.com/livepeer/catalyst-api/pipeline"
	"github.com/livepeer/catalyst-api/progress"
	"github.com/livepeer/catalyst-api/signals"
	"github.com/livepeer/catalyst-api/video"
)

func main() {
	cli, mistJSON := parseFlags()

	if mistJSON {
		mistconnector.PrintMistConfigJson(
			"highlight-clip-engine",
			"Auto-detects and cuts highlight clips from a source video",
			"Highlight Clip Engine",
			config.Version,
			flag.CommandLine,
		)
		return
	}

	downloader := clients.NewHTTPDownloader(cli.DownloaderURL)
	transcoder := clients.NewFFTranscoder(cli.FFmpegPath, cli.FFprobePath)
	prober := video.Probe{}

	var output clients.OutputStore = clients.NewLocalOutputStore(cli.OutputDir)
	if cli.S3Bucket != "" {
		s3Client, err := clients.NewS3Client(cli.S3Region)
		if err != nil {
			log.Fatalf("failed to configure s3 output store: %v", err)
		}
		output = clients.NewS3OutputStore(s3Client, cli.S3Bucket)
	}

	var transcriber clients.Transcriber = clients.NoopTranscriber{}
	if cli.TranscriberURL != "" {
		transcriber = clients.NewHTTPTranscriber(cli.TranscriberURL)
	}
	var translator clients.Translator = clients.NoopTranslator{}
	if cli.TranslatorURL != "" {
		translator = clients.NewHTTPTranslator(cli.TranslatorURL)
	}
	var tts clients.TTS = clients.NoopTTS{}
	if cli.TTSURL != "" {
		tts = clients.NewHTTPTTS(cli.TTSURL)
	}

	hub := progress.NewHub()
	coordinator := pipeline.NewCoordinator(hub, cli.TempDir)
	coordinator.Downloader = downloader
	coordinator.Transcoder = transcoder
	coordinator.Transcriber = transcriber
	coordinator.Translator = translator
	coordinator.TTS = tts
	coordinator.Prober = prober
	coordinator.Output = output

	if cli.MetricsDBConnectionString != "" {
		metricsDB, err := pipeline.OpenMetricsDB(cli.MetricsDBConnectionString)
		if err != nil {
			log.Fatalf("failed to open metrics db: %v", err)
		}
		coordinator.MetricsDB = metricsDB
	}

	probes := autodetect.Probes{
		Prober:     prober,
		Heatmap:    signals.HeatmapProbe{Downloader: downloader},
		Audio:      signals.NewAudioProbe(transcoder),
		Scene:      signals.SceneProbe{Transcoder: transcoder},
		Comments:   signals.NewCommentProbe(downloader),
		Transcoder: transcoder,
	}

	h := &handlers.HighlightAPIHandlers{
		Coordinator: coordinator,
		Hub:         hub,
		Downloader:  downloader,
		Transcoder:  transcoder,
		Transcriber: transcriber,
		Prober:      prober,
		Heatmap:     probes.Heatmap,
		Audio:       probes.Audio,
		Scene:       probes.Scene,
		Comments:    probes.Comments,
		OutputDir:   cli.OutputDir,
		Batches:     batch.NewTracker(probes, coordinator, cli.AMQPURL),
	}

	go func() {
		if err := metrics.ListenAndServe(cli.PromPort); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.ListenAndServe(ctx, cli, h); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (config.Cli, bool) {
	var cli config.Cli
	var mistJSON bool

	flag.IntVar(&cli.Port, "port", 4949, "Port to listen on")
	flag.IntVar(&cli.PromPort, "prom-port", 9090, "Port to serve Prometheus metrics on")
	flag.StringVar(&cli.OutputDir, "output-dir", "./output", "Directory finished clips are written to")
	flag.StringVar(&cli.TempDir, "temp-dir", "./temp", "Directory per-job scratch files are written to")
	flag.StringVar(&cli.FFmpegPath, "ffmpeg-path", "ffmpeg", "Path to the ffmpeg binary")
	flag.StringVar(&cli.FFprobePath, "ffprobe-path", "ffprobe", "Path to the ffprobe binary")
	flag.StringVar(&cli.DownloaderURL, "downloader-url", "", "Base URL of the source video downloader service")
	flag.StringVar(&cli.TranscriberURL, "transcriber-url", "", "Base URL of the speech-to-text service")
	flag.StringVar(&cli.TranslatorURL, "translator-url", "", "Base URL of the translation service")
	flag.StringVar(&cli.TTSURL, "tts-url", "", "Base URL of the text-to-speech service")
	flag.StringVar(&cli.S3Bucket, "s3-bucket", "", "S3 bucket to write finished clips to, instead of local disk")
	flag.StringVar(&cli.S3Region, "s3-region", "us-east-1", "AWS region for the S3 output bucket")
	flag.StringVar(&cli.AMQPURL, "amqp-url", "", "RabbitMQ URL for distributing batch jobs across processes")
	flag.StringVar(&cli.MetricsDBConnectionString, "metrics-db", "", "Postgres connection string for the completed-jobs metrics sink")
	flag.BoolVar(&mistJSON, "j", false, "Print application info as JSON. Used by Mist to present flags in its UI.")
	flag.Parse()

	return cli, mistJSON
}
