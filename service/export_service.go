package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"baliance.com/gooxml/document"
	"baliance.com/gooxml/schema/soo/wml"
	"github.com/tieubaoca/rfi-processor-be/types"
)

const noAnswerPlaceholder = "No answer found for this question."

// ExportService renders a run's report as a Word document and the run
// history as CSV.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// reportSection is one question's rendered block, in report order.
type reportSection struct {
	Heading  string
	Question string
	Answer   string
	NoAnswer bool
	Source   string
}

// reportSections lays the records out in their stored order; the export
// never reorders them.
func reportSections(records []types.AnswerRecord) []reportSection {
	sections := make([]reportSection, 0, len(records))
	for i, record := range records {
		section := reportSection{
			Heading:  fmt.Sprintf("Question %d:", i+1),
			Question: record.Question,
			Answer:   record.Answer,
			Source:   record.Citation,
		}
		if strings.TrimSpace(record.Answer) == "" {
			section.NoAnswer = true
			section.Answer = noAnswerPlaceholder
		}
		sections = append(sections, section)
	}
	return sections
}

// WriteReportDocument writes the report as a .docx: a centered title and
// timestamp, then per question a numbered heading, the bold question text,
// the answer (italic placeholder when empty) and the source if any.
func (s *ExportService) WriteReportDocument(records []types.AnswerRecord, w io.Writer) error {
	doc := document.New()

	title := doc.AddParagraph()
	title.SetStyle("Title")
	title.Properties().SetAlignment(wml.ST_JcCenter)
	title.AddRun().AddText("Document Analysis Results")

	generated := doc.AddParagraph()
	generated.Properties().SetAlignment(wml.ST_JcCenter)
	generated.AddRun().AddText("Generated on: " + time.Now().Format("2006-01-02 15:04:05"))
	doc.AddParagraph()

	sections := reportSections(records)
	for i, section := range sections {
		heading := doc.AddParagraph()
		heading.SetStyle("Heading1")
		heading.AddRun().AddText(section.Heading)

		questionPara := doc.AddParagraph()
		questionRun := questionPara.AddRun()
		questionRun.Properties().SetBold(true)
		questionRun.AddText(section.Question)

		answerHeading := doc.AddParagraph()
		answerHeading.SetStyle("Heading2")
		answerHeading.AddRun().AddText("Answer:")

		answerPara := doc.AddParagraph()
		answerRun := answerPara.AddRun()
		if section.NoAnswer {
			answerRun.Properties().SetItalic(true)
		}
		answerRun.AddText(section.Answer)

		if strings.TrimSpace(section.Source) != "" {
			sourceHeading := doc.AddParagraph()
			sourceHeading.SetStyle("Heading2")
			sourceHeading.AddRun().AddText("Source:")
			doc.AddParagraph().AddRun().AddText(section.Source)
		}

		if i < len(sections)-1 {
			doc.AddParagraph()
			separator := doc.AddParagraph()
			separator.Properties().SetAlignment(wml.ST_JcCenter)
			separator.AddRun().AddText(strings.Repeat("_", 50))
			doc.AddParagraph()
		}
	}

	return doc.Save(w)
}

// WriteHistoryCSV writes the run history as delimited text, newest first in
// whatever order the runs come in.
func (s *ExportService) WriteHistoryCSV(runs []*types.ProcessingRun, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"File Name", "Status", "Timestamp", "Processing Info", "User"}); err != nil {
		return err
	}
	for _, run := range runs {
		row := []string{
			run.FileName,
			run.Status,
			formatRunTimestamp(run.Timestamp),
			FormatRunInfo(run),
			run.Username,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatRunInfo summarizes a run's metadata for history views.
func FormatRunInfo(run *types.ProcessingRun) string {
	if run.Metadata == nil {
		return ""
	}
	if run.Metadata.ErrorMessage != "" {
		return "Error: " + truncateString(run.Metadata.ErrorMessage, 50)
	}
	if run.Metadata.TotalChunks == 0 {
		return ""
	}
	return fmt.Sprintf("Processed %d/%d chunks, %d answers found",
		run.Metadata.ChunksProcessed, run.Metadata.TotalChunks, run.Metadata.AnswersFound)
}

func formatRunTimestamp(timestamp string) string {
	parsed, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return parsed.Format("2006-01-02 15:04:05")
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
