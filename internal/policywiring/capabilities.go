package policywiring

import (
	"context"
	"time"

	"governedchat/internal/clock"
	"governedchat/internal/memory"
	"governedchat/internal/plan"
	"governedchat/internal/retrieval"
)

// RetrievalCapability is what the orchestrator depends on; it never
// imports the retrieval package directly, only this interface.
type RetrievalCapability interface {
	Retrieve(ctx context.Context, tier plan.Tier, req RetrievalRequest) retrieval.Result
}

// MemoryCapability is what the orchestrator depends on for memory writes
// and reads; it never imports the memory package's store internals.
type MemoryCapability interface {
	Write(tier plan.Tier, subjectID string, facts []memory.MemoryFact, requestedTTLMS int64) memory.WriteResult
	Read(tier plan.Tier, subjectID string, template memory.ReadTemplate) memory.MemoryBundle
}

// RetrievalRequest is the capability-level retrieval input; PolicyCaps is
// deliberately absent, since the capability derives it from tier, never
// from the caller.
type RetrievalRequest struct {
	Query        string
	AllowedTools []retrieval.ToolKind
	RequestFlags retrieval.RequestFlags
	DraftAnswer  string
}

// Runtime is the concrete capability provider: it owns the tool set and
// the memory event log, and is the only place either is touched outside
// their own packages.
type Runtime struct {
	tools     map[retrieval.ToolKind]retrieval.Tool
	clk       clock.Clock
	memoryLog *memory.Log
}

func NewRuntime(tools map[retrieval.ToolKind]retrieval.Tool, clk clock.Clock, memoryLog *memory.Log) *Runtime {
	return &Runtime{tools: tools, clk: clk, memoryLog: memoryLog}
}

func (r *Runtime) Retrieve(ctx context.Context, tier plan.Tier, req RetrievalRequest) retrieval.Result {
	policyReq := retrieval.Request{
		Query:        req.Query,
		PolicyCaps:   RetrievalCapsForTier(tier),
		AllowedTools: req.AllowedTools,
		RequestFlags: req.RequestFlags,
	}
	retrievedAt := r.clk.Now().UTC().Format(time.RFC3339)
	return retrieval.Run(ctx, policyReq, r.tools, retrievedAt, r.clk.Now(), req.DraftAnswer)
}

func (r *Runtime) Write(tier plan.Tier, subjectID string, facts []memory.MemoryFact, requestedTTLMS int64) memory.WriteResult {
	return memory.WriteMemory(r.memoryLog, memory.MemoryWriteRequest{
		SubjectID:      subjectID,
		Tier:           MemoryTierForPlanTier(tier),
		Facts:          facts,
		RequestedTTLMS: requestedTTLMS,
		NowMS:          r.clk.NowMillis(),
	})
}

func (r *Runtime) Read(tier plan.Tier, subjectID string, template memory.ReadTemplate) memory.MemoryBundle {
	view := memory.RecomputeCurrentView(subjectID, r.memoryLog.Events(), r.clk.NowMillis(), memory.StoreCaps{MaxActiveFactsPerSubject: 50})
	maxFacts, maxPerCategory, maxTotalChars := ReadCapsForTier(tier)
	return memory.ReadMemoryBundle(view, memory.MemoryReadRequest{
		SubjectID:      subjectID,
		Template:       template,
		MaxFacts:       maxFacts,
		MaxPerCategory: maxPerCategory,
		MaxTotalChars:  maxTotalChars,
	})
}
