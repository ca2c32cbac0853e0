package schema

import "sync"

// Node labels defined by the Engram memory-graph domain (spec §3.3).
const (
	LabelSession   = "Session"
	LabelTurn      = "Turn"
	LabelReasoning = "Reasoning"
	LabelToolCall  = "ToolCall"
	LabelObservation = "Observation"
	LabelFileTouch = "FileTouch"
	LabelMemory    = "Memory"
	LabelEntity    = "Entity"
)

// Edge types defined by the Engram memory-graph domain (spec §3.3).
const (
	EdgeHasTurn    = "HAS_TURN"
	EdgeNext       = "NEXT"
	EdgeContains   = "CONTAINS"
	EdgeInvokes    = "INVOKES"
	EdgeTriggers   = "TRIGGERS"
	EdgeTouches    = "TOUCHES"
	EdgeYields     = "YIELDS"
	EdgeReplaces   = "REPLACES"
	EdgeMentions   = "MENTIONS"
	EdgeRelatedTo  = "RELATED_TO"
)

var (
	engramOnce     sync.Once
	engramRegistry *Registry
)

// Engram returns the process-wide Engram schema registry, constructing it
// exactly once (§5: "constructed once at startup, thereafter read-only").
func Engram() *Registry {
	engramOnce.Do(func() {
		r, err := DefineSchema(engramNodes(), engramEdges())
		if err != nil {
			// A panic here means the schema literal itself is malformed —
			// a programmer error caught in tests, never a runtime condition.
			panic(err)
		}
		engramRegistry = r
	})
	return engramRegistry
}

func engramNodes() []NodeDef {
	return []NodeDef{
		{Label: LabelSession, Fields: []Field{
			{Name: "user_id", Kind: KindString},
			{Name: "started_at", Kind: KindTimestamp},
			{Name: "agent_type", Kind: KindString},
			{Name: "working_dir", Kind: KindString, Optional: true},
			{Name: "git_remote", Kind: KindString, Optional: true},
			{Name: "summary", Kind: KindString, Optional: true},
			{Name: "embedding", Kind: KindArray, ElemKind: KindFloat, Optional: true},
		}},
		{Label: LabelTurn, Fields: []Field{
			{Name: "sequence_index", Kind: KindInt},
			{Name: "prompt_preview", Kind: KindString, Optional: true},
			{Name: "response_preview", Kind: KindString, Optional: true},
			{Name: "input_tokens", Kind: KindInt, Optional: true, Default: 0},
			{Name: "output_tokens", Kind: KindInt, Optional: true, Default: 0},
			{Name: "cost_usd", Kind: KindFloat, Optional: true, Default: 0.0},
			{Name: "duration_ms", Kind: KindInt, Optional: true, Default: 0},
			{Name: "files_touched", Kind: KindInt, Optional: true, Default: 0},
		}},
		{Label: LabelReasoning, Fields: []Field{
			{Name: "content_hash", Kind: KindString},
			{Name: "preview", Kind: KindString, Optional: true},
			{Name: "sequence_index", Kind: KindInt},
			{Name: "reasoning_type", Kind: KindString, Optional: true},
		}},
		{Label: LabelToolCall, Fields: []Field{
			{Name: "call_id", Kind: KindString},
			{Name: "tool_name", Kind: KindString},
			{Name: "tool_type", Kind: KindString, Optional: true},
			{Name: "arguments", Kind: KindString, Optional: true},
			{Name: "status", Kind: KindEnum, Enum: []string{"pending", "running", "completed", "failed"}},
			{Name: "sequence_index", Kind: KindInt},
		}},
		{Label: LabelObservation, Fields: []Field{
			{Name: "tool_call_id", Kind: KindString},
			{Name: "content", Kind: KindString, Optional: true},
			{Name: "is_error", Kind: KindBool, Default: false},
		}},
		{Label: LabelFileTouch, Fields: []Field{
			{Name: "path", Kind: KindString},
			{Name: "action", Kind: KindString},
			{Name: "tool_call_id", Kind: KindString},
			{Name: "lines_added", Kind: KindInt, Optional: true, Default: 0},
			{Name: "lines_removed", Kind: KindInt, Optional: true, Default: 0},
		}},
		{Label: LabelMemory, Fields: []Field{
			{Name: "content", Kind: KindString, MaxLength: intPtr(50000)},
			{Name: "content_hash", Kind: KindString},
			{Name: "memory_type", Kind: KindEnum, Default: "context",
				Enum: []string{"decision", "context", "insight", "preference", "fact"}},
			{Name: "tags", Kind: KindArray, ElemKind: KindString, Optional: true, Default: []string{}},
			{Name: "project", Kind: KindString, Optional: true},
			{Name: "last_accessed", Kind: KindTimestamp, Optional: true},
			{Name: "access_count", Kind: KindInt, Optional: true, Default: 0},
			{Name: "decay_score", Kind: KindFloat, Optional: true, Default: 1.0, Min: floatPtr(0), Max: floatPtr(1)},
			{Name: "pinned", Kind: KindBool, Optional: true, Default: false},
			{Name: "embedding", Kind: KindArray, ElemKind: KindFloat, Optional: true},
		}},
		{Label: LabelEntity, Fields: []Field{
			{Name: "name", Kind: KindString},
			{Name: "aliases", Kind: KindArray, ElemKind: KindString, Optional: true, Default: []string{}},
			{Name: "entity_type", Kind: KindString, Optional: true},
			{Name: "mention_count", Kind: KindInt, Optional: true, Default: 0},
		}},
	}
}

func engramEdges() []EdgeDef {
	return []EdgeDef{
		{Type: EdgeHasTurn, From: LabelSession, To: LabelTurn, Cardinality: OneToMany, Temporal: true},
		{Type: EdgeNext, From: LabelTurn, To: LabelTurn, Cardinality: OneToOne, Temporal: true},
		{Type: EdgeContains, From: LabelTurn, To: LabelReasoning, Cardinality: OneToMany, Temporal: true},
		{Type: EdgeInvokes, From: LabelTurn, To: LabelToolCall, Cardinality: OneToMany, Temporal: true},
		{Type: EdgeTriggers, From: LabelReasoning, To: LabelToolCall, Cardinality: OneToMany, Temporal: true},
		{Type: EdgeTouches, From: LabelToolCall, To: LabelFileTouch, Cardinality: OneToMany, Temporal: true},
		{Type: EdgeYields, From: LabelToolCall, To: LabelObservation, Cardinality: OneToOne, Temporal: true},
		{Type: EdgeReplaces, From: LabelMemory, To: LabelMemory, Cardinality: OneToOne, Temporal: true},
		{Type: EdgeMentions, From: LabelMemory, To: LabelEntity, Cardinality: ManyToMany, Temporal: true, Props: []Field{
			{Name: "context", Kind: KindString, Optional: true},
			{Name: "confidence", Kind: KindFloat, Optional: true, Default: 1.0, Min: floatPtr(0), Max: floatPtr(1)},
			{Name: "mention_count", Kind: KindInt, Optional: true, Default: 1},
		}},
		{Type: EdgeRelatedTo, From: LabelMemory, To: LabelMemory, Cardinality: ManyToMany, Temporal: true},
	}
}

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }
