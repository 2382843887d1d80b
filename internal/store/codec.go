package store

import (
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/contest-crawler/internal/contest"
)

// Encode serializes a corpus in the wire format shared by every backend.
func Encode(corpus contest.Corpus) ([]byte, error) {
	data, err := json.Marshal(corpus)
	if err != nil {
		return nil, fmt.Errorf("encode corpus: %w", err)
	}
	return data, nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (contest.Corpus, error) {
	var corpus contest.Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return contest.Corpus{}, fmt.Errorf("decode corpus: %w", err)
	}
	return corpus, nil
}
