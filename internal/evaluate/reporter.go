package evaluate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"car-price-predictor/internal/pipeline"

	"github.com/rs/zerolog/log"
)

const (
	SummaryFile     = "evaluation_summary.txt"
	PredictionsFile = "predictions.csv"
	ReportFile      = "evaluation_report.json"
)

// Reporter generates evaluation reports
type Reporter struct {
	results    *Results
	outputPath string
}

func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes the summary, the per-sample CSV and the JSON report.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generatePredictionLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	res := r.results

	fmt.Fprintf(w, "EVALUATION RESULTS SUMMARY\n")
	fmt.Fprintf(w, "==========================\n\n")

	fmt.Fprintf(w, "Run: %s to %s\n",
		res.StartTime.Format("2006-01-02 15:04:05"),
		res.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %s\n\n", res.EndTime.Sub(res.StartTime))

	fmt.Fprintf(w, "SAMPLES\n")
	fmt.Fprintf(w, "-------\n")
	fmt.Fprintf(w, "Total: %d\n", res.Samples)
	fmt.Fprintf(w, "Predicted: %d\n", res.Predicted)
	fmt.Fprintf(w, "Failed: %d\n", res.Failed)
	fmt.Fprintf(w, "With imputed inputs: %d\n", res.Imputed)
	fmt.Fprintf(w, "Labelled: %d\n\n", res.Labelled)

	if res.Labelled == 0 {
		fmt.Fprintf(w, "No labelled samples; error metrics not computed.\n")
		return
	}

	fmt.Fprintf(w, "ERROR METRICS\n")
	fmt.Fprintf(w, "-------------\n")
	fmt.Fprintf(w, "MAE: $%s\n", pipeline.FormatAmount(res.MAE))
	fmt.Fprintf(w, "RMSE: $%s\n", pipeline.FormatAmount(res.RMSE))
	fmt.Fprintf(w, "Max Abs Error: $%s\n", pipeline.FormatAmount(res.MaxAbsError))
	fmt.Fprintf(w, "MAPE: %.2f%%\n", res.MAPE)
	fmt.Fprintf(w, "RMSLE: %.4f\n", res.RMSLE)
}

func (r *Reporter) generatePredictionLog() error {
	csvPath := filepath.Join(r.outputPath, PredictionsFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create prediction log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"line", "transmission", "max_power", "imputed_transmission",
		"imputed_max_power", "price", "label", "error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range r.results.Outcomes {
		label := ""
		if o.Label != nil {
			label = strconv.FormatFloat(*o.Label, 'f', 2, 64)
		}
		price := ""
		if o.Error == "" {
			price = strconv.FormatFloat(o.Price, 'f', 2, 64)
		}
		record := []string{
			strconv.Itoa(o.Line),
			strconv.Itoa(o.Transmission),
			strconv.FormatFloat(o.MaxPower, 'f', -1, 64),
			strconv.FormatBool(o.ImputedTransmission),
			strconv.FormatBool(o.ImputedMaxPower),
			price,
			label,
			o.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write prediction log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Prediction log generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, ReportFile)
	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints the summary to stdout
func (r *Reporter) PrintSummary() {
	fmt.Println()
	r.writeSummary(os.Stdout)
	fmt.Println()
}
