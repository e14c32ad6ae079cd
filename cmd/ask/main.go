package ask

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"tds-relay/config"
	"tds-relay/service/query"
)

const flagImage = "image"

func Flags() []cli.Flag {
	return append(config.AssistantFlags(),
		&cli.PathFlag{
			Name:    flagImage,
			Aliases: []string{"i"},
			Usage:   "Image file to send along with the question",
		},
	)
}

// Ask sends the question given on the command line through the same relay the server uses and
// prints the normalized reply.
func Ask(ctx *cli.Context) error {
	question := strings.Join(ctx.Args().Slice(), " ")
	if question == "" {
		return errors.New("a question is required")
	}

	cfg, err := config.FromCLI(ctx, config.DefaultSecrets())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	q := query.Query{Question: question}
	if path := ctx.Path(flagImage); path != "" {
		q.Image, err = encodeImage(path)
		if err != nil {
			return err
		}
	}

	relay := query.NewRelay(cfg.NewAssistant(), slog.Default())
	response, err := relay.Answer(ctx.Context, q)
	if err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}

	responseBytes, err := json.MarshalIndent(response, "", " ")
	if err != nil {
		return fmt.Errorf("failed to serialize response: %w", err)
	}
	fmt.Fprintln(ctx.App.Writer, string(responseBytes))

	return nil
}

func encodeImage(path string) (string, error) {
	imageBytes, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(imageBytes), nil
}
