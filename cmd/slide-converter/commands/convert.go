package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/slide-converter/cmd/slide-converter/ui"
	"github.com/spherical/slide-converter/internal/app"
	"github.com/spherical/slide-converter/internal/domain"
)

var (
	sourceType  string
	sourceURL   string
	uploadURL   string
	callbackURL string
	transparent bool
	requestFile string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Run a single conversion job",
	Long: `Runs one job in-process and shows its progress. The job is described either by flags
or by a JSON request body (the same body POST /convert accepts) given with --request.`,
	Example: `  slide-converter convert --type pptx --url https://example.com/deck.pptx \
    --upload-url https://example.com/pages --callback-url https://example.com/done

  slide-converter convert --request job.json`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&sourceType, "type", "t", "", "source format: ppt, pptx, odp or pdf")
	convertCmd.Flags().StringVarP(&sourceURL, "url", "u", "", "source document URL")
	convertCmd.Flags().StringVar(&uploadURL, "upload-url", "", "destination URL for page uploads")
	convertCmd.Flags().StringVar(&callbackURL, "callback-url", "", "URL notified when the job ends")
	convertCmd.Flags().BoolVar(&transparent, "transparent", false, "keep the alpha channel of rendered pages")
	convertCmd.Flags().StringVarP(&requestFile, "request", "r", "", "JSON request file, - for stdin")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil && domain.IsType(err, domain.ErrorTypeValidation) {
		return err
	}

	cfg, logger, err := loadConfig(os.Stderr, "console")
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan domain.Event, 256)
	watched := make(chan struct{})
	go func() {
		ui.WatchJob(events)
		close(watched)
	}()

	res := a.Pipeline.Run(ctx, req, events)
	close(events)
	<-watched

	if res.Err != nil {
		ui.Error("%s", res.Err)
		return fmt.Errorf("job %s: %s", res.JobID, res.Message())
	}

	ui.Success("%s (job %s, %s)", res.Message(), res.JobID, res.Duration.Round(time.Millisecond))
	return nil
}

// buildRequest assembles the request from --request or from the individual flags
func buildRequest(stdin io.Reader) (domain.ConvertRequest, error) {
	var req domain.ConvertRequest

	if requestFile != "" {
		var r io.Reader = stdin
		if requestFile != "-" {
			f, err := os.Open(requestFile)
			if err != nil {
				return req, fmt.Errorf("open request file: %w", err)
			}
			defer f.Close()
			r = f
		}
		if err := json.NewDecoder(r).Decode(&req); err != nil {
			return req, fmt.Errorf("decode request: %w", err)
		}
		return req, nil
	}

	req.DownloadData = domain.DownloadData{Type: sourceType, URL: sourceURL}
	req.UploadData = domain.UploadData{URL: uploadURL, Callback: domain.Callback{URL: callbackURL}}
	if transparent {
		req.ConversionParams = &domain.ConversionParams{PreserveTransparency: &transparent}
	}
	return req, nil
}
