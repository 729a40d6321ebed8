package config

// Cli holds the flags cmd/http-server parses at startup, the same split
// the teacher uses between ambient config (ports, external endpoints) and
// a Cli struct passed down into the router.
type Cli struct {
	Port     int
	PromPort int

	OutputDir string
	TempDir   string

	FFmpegPath  string
	FFprobePath string

	DownloaderURL string

	TranscriberURL string
	TranslatorURL  string
	TTSURL         string

	S3Bucket string
	S3Region string

	AMQPURL string

	MetricsDBConnectionString string
}
