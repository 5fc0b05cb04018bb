package scoring

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

var (
	estimateKeys = []string{"jd_text_length", "resume_text_length", "jd_token_estimate", "resume_token_estimate"}
	resultKeys   = []string{"questions", "average_score"}
)

func decodeEstimate(raw map[string]any) (*TokenEstimate, error) {
	if err := requireKeys(raw, estimateKeys); err != nil {
		return nil, err
	}

	var estimate TokenEstimate
	if err := decode(raw, &estimate); err != nil {
		return nil, fmt.Errorf("decode estimate: %w", err)
	}

	return &estimate, nil
}

func decodeScoreResponse(raw map[string]any) (*ScoreResponse, error) {
	var response ScoreResponse
	if err := decode(raw, &response); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}

	if _, ok := raw["success"]; ok && !response.Success {
		return nil, fmt.Errorf("%w: %s", ErrScoringFailed, response.Message)
	}

	payload, ok := raw["result"].(map[string]any)
	if !ok {
		// older service versions put the result under "score"
		payload, ok = raw["score"].(map[string]any)
	}
	if !ok {
		return nil, fmt.Errorf("%w: result is missing", ErrMalformedResult)
	}

	if err := requireKeys(payload, resultKeys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}

	normalizeChunkIDs(payload)

	var result ScoreResult
	if err := decode(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}

	if err := validate.Struct(&result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}

	response.Result = &result
	return &response, nil
}

func decode(input, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func requireKeys(raw map[string]any, keys []string) error {
	for _, key := range keys {
		if value, ok := raw[key]; !ok || value == nil {
			return fmt.Errorf("%q is missing", key)
		}
	}
	return nil
}

// normalizeChunkIDs accepts "id" as an alias of "chunk_id" for retrieved chunks.
func normalizeChunkIDs(payload map[string]any) {
	questions, _ := payload["questions"].([]any)
	for _, q := range questions {
		question, ok := q.(map[string]any)
		if !ok {
			continue
		}

		chunks, _ := question["retrieved_chunks"].([]any)
		for _, c := range chunks {
			chunk, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if _, ok := chunk["chunk_id"]; ok {
				continue
			}
			if id, ok := chunk["id"]; ok {
				chunk["chunk_id"] = id
			}
		}
	}
}
