package qcgraph

import (
	"context"

	"github.com/rs/zerolog/log"
)

// QcResultFetcher performs a single attempt per call. A failed call and an empty
// result are both returned as an empty list, so the chart renders empty.
type QcResultFetcher interface {
	FetchQcDocs(ctx context.Context, cond QcDocQueryCond) []QcDocInfo
	FetchQcResults(ctx context.Context, cond QcResultQueryCond) []QcResult
	FetchYoudenResults(ctx context.Context, cond QcResultQueryCond) []TwinQcResult
}

type qcResultFetcher struct {
	client LogicControlClient
}

func NewQcResultFetcher(client LogicControlClient) QcResultFetcher {
	return &qcResultFetcher{client: client}
}

func (f *qcResultFetcher) FetchQcDocs(ctx context.Context, cond QcDocQueryCond) []QcDocInfo {
	if cond.AssayName == "" {
		log.Debug().Msg("fetch qc documents skipped, no assay selected")
		return []QcDocInfo{}
	}
	docs, err := f.client.QueryQcDocConcInfo(ctx, cond)
	if err != nil {
		logFetchFailure(ctx, err, cond.AssayName, "")
		return []QcDocInfo{}
	}
	if len(docs) == 0 {
		log.Info().Str("assay", cond.AssayName).Msg("no qc documents found")
	}
	return docs
}

func (f *qcResultFetcher) FetchQcResults(ctx context.Context, cond QcResultQueryCond) []QcResult {
	if cond.QcDocID == "" {
		log.Info().Str("assay", cond.AssayName).Msg(MsgEmptyQcDocID)
		return []QcResult{}
	}
	results, err := f.client.QueryQcRltInfo(ctx, cond)
	if err != nil {
		logFetchFailure(ctx, err, cond.AssayName, cond.QcDocID)
		return []QcResult{}
	}
	if len(results) == 0 {
		log.Info().Str("assay", cond.AssayName).Str("qcDocId", cond.QcDocID).Msg("no qc results found")
	}
	return results
}

func (f *qcResultFetcher) FetchYoudenResults(ctx context.Context, cond QcResultQueryCond) []TwinQcResult {
	if cond.AssayName == "" {
		log.Debug().Msg("fetch youden results skipped, no assay selected")
		return []TwinQcResult{}
	}
	results, err := f.client.QueryQcYoudenRltInfo(ctx, cond)
	if err != nil {
		logFetchFailure(ctx, err, cond.AssayName, "")
		return []TwinQcResult{}
	}
	if len(results) == 0 {
		log.Info().Str("assay", cond.AssayName).Msg("no youden qc results found")
	}
	return results
}

func logFetchFailure(ctx context.Context, err error, assayName, qcDocID string) {
	if ctx.Err() != nil {
		log.Debug().Err(err).Str("assay", assayName).Msg("qc fetch cancelled")
		return
	}
	log.Error().Err(err).Str("assay", assayName).Str("qcDocId", qcDocID).Msg("qc fetch failed, rendering empty chart")
}
