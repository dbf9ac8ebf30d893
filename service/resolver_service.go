package service

import (
	"context"
	"strings"
	"sync"

	"github.com/tieubaoca/rfi-processor-be/database"
	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/types"
	"go.uber.org/zap"
)

const (
	// AnswerLabel prefixes every non-negative resolved answer.
	AnswerLabel = "Answer: "

	// ResolveErrorAnswer marks a sub-question whose retrieval call failed.
	ResolveErrorAnswer = "Error: Unable to process the question."
)

// The knowledge base answers in prose even when it found nothing; these
// phrases are how the model says so. Matching them is a classification
// policy kept behind IsNegativeResult so the heuristic can be swapped for
// a structured no-answer flag without touching call sites.
var negativeResultPhrases = []string{
	"Sorry, I am unable",
	"do not contain",
	"No answer",
	"I could not find",
	"no relevant information to extract",
}

// IsNegativeResult reports whether the generated text is an explicit
// no-answer response rather than an answer.
func IsNegativeResult(text string) bool {
	for _, phrase := range negativeResultPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// answerExtractionPrompt is the grouped generation task; the knowledge
// base appends the retrieved passages to it before calling the model.
const answerExtractionPrompt = `You are a business person working on answering request for information requests.
Your job is to extract answers that meet the criteria in <instructions></instructions> from the search results, which contain numbered answers to questions. Extract the responses, keeping the numbers intact, and put each numbered response on a new line.

<instructions>
Look for the exact match to the question or subquestions and provide all the answers using the existing content as is, keeping the original text intact.
When you find the exact match the answers will start with the same number as the questions.
Provide every answer that starts with the same question number.
Ignore the references at the end of the page, which always start with a number followed by a URL.
Do not include the question as part of the result.
Include the answer number.
</instructions>
`

// maxConcurrentResolutions bounds the retrieval calls in flight per
// question block.
const maxConcurrentResolutions = 4

// ResolverService answers extracted questions against the knowledge
// collection, one retrieval call per sub-question.
type ResolverService struct {
	kb database.KnowledgeBase
}

func NewResolverService(kb database.KnowledgeBase) *ResolverService {
	return &ResolverService{
		kb: kb,
	}
}

// SplitSubQuestions breaks an extractor question block into its numbered
// sub-questions. Blocks are separated by blank lines; the leading segment
// is the model's preamble, not a question, and is discarded.
func (s *ResolverService) SplitSubQuestions(questionBlock string) []string {
	parts := strings.Split(questionBlock, "\n\n")
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// Resolve answers every sub-question of one extracted question block.
// Sub-questions are independent, so they are resolved through a bounded
// worker pool; each record lands at its sub-question's split index, which
// keeps the returned order identical to a sequential pass. A failed
// retrieval call marks only that sub-question with the error answer; one
// failure never aborts the batch.
func (s *ResolverService) Resolve(ctx context.Context, questionBlock string) []types.AnswerRecord {
	subQuestions := s.SplitSubQuestions(questionBlock)
	records := make([]types.AnswerRecord, len(subQuestions))

	sem := make(chan struct{}, maxConcurrentResolutions)
	var wg sync.WaitGroup
	for i, question := range subQuestions {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, question string) {
			defer wg.Done()
			defer func() { <-sem }()
			records[i] = s.resolveOne(ctx, question)
		}(i, question)
	}
	wg.Wait()

	return records
}

func (s *ResolverService) resolveOne(ctx context.Context, question string) types.AnswerRecord {
	record := types.AnswerRecord{Question: question}

	result, err := s.kb.RetrieveAndGenerate(ctx, question, answerExtractionPrompt)
	if err != nil {
		logger.Error("retrieval call failed", zap.Error(err))
		record.Answer = ResolveErrorAnswer
		return record
	}

	if !IsNegativeResult(result.OutputText) {
		record.Answer = AnswerLabel + result.OutputText
		if len(result.Citations) > 0 {
			record.Citation = result.Citations[0].Source
		}
	}
	return record
}
