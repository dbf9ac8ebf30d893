package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/types"
	"go.uber.org/zap"
)

// noQuestionsMarker prefixes model responses that found nothing to extract.
const noQuestionsMarker = "Unfortunately"

const questionExtractionPrompt = `You are a business person working on request for information requests.
Your job is to extract questions that meet the criteria in <instructions></instructions>.

<document>
%s
</document>

<instructions>
The document contains multiple sections.
The document contains a list of questions and subquestions that are marked with numbers and letters.
Ignore the page number in front of the questions.
Ignore guidance.
Ignore penalties.
Ignore warnings.
Ignore non-compliance with this notice.
Ignore intentional obstruction or delay.
Ignore instructions.
Ignore definitions and interpretations.
</instructions>
`

// ExtractorService pulls enumerated questions out of one document chunk by
// asking the generation model.
type ExtractorService struct {
	generator Generator
}

func NewExtractorService(generator Generator) *ExtractorService {
	return &ExtractorService{
		generator: generator,
	}
}

// ExtractQuestions returns the model's verbatim question block for the
// chunk, or "" when the chunk holds no questions. A failed generation call
// is surfaced to the caller, which skips the chunk; there is no retry.
func (s *ExtractorService) ExtractQuestions(ctx context.Context, chunk types.DocumentChunk) (string, error) {
	prompt := fmt.Sprintf(questionExtractionPrompt, chunk.Content)
	output, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: question extraction: %v", types.ErrExternalCall, err)
	}
	if strings.HasPrefix(output, noQuestionsMarker) {
		logger.Debug("chunk yielded no questions", zap.Int("chunk", chunk.Index))
		return "", nil
	}
	return output, nil
}
