package toolcall

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolforge/studio/stream"
)

func toolStart(name string) *stream.Event {
	return &stream.Event{
		Type:         stream.EventContentBlockStart,
		ContentBlock: &stream.ContentBlock{Type: stream.BlockToolUse, ID: "tu_1", Name: name},
	}
}

func jsonDelta(fragment string) *stream.Event {
	return &stream.Event{
		Type:  stream.EventContentBlockDelta,
		Delta: &stream.Delta{Type: stream.DeltaInputJSON, PartialJSON: fragment},
	}
}

func textDelta(text string) *stream.Event {
	return &stream.Event{
		Type:  stream.EventContentBlockDelta,
		Delta: &stream.Delta{Type: stream.DeltaText, Text: text},
	}
}

func blockStop() *stream.Event {
	return &stream.Event{Type: stream.EventContentBlockStop}
}

func TestAccumulator_FragmentOrder(t *testing.T) {
	var calls []Call
	a := NewAccumulator(func(c Call) { calls = append(calls, c) })

	a.Consume(toolStart(ToolAddWorkflowConnection))
	a.Consume(jsonDelta(`{"from":"a`))
	a.Consume(jsonDelta(`","to":"b"}`))
	a.Consume(blockStop())

	require.Len(t, calls, 1)
	conn, ok := calls[0].(AddWorkflowConnection)
	require.True(t, ok)
	assert.Equal(t, "a", conn.From)
	assert.Equal(t, "b", conn.To)
}

func TestAccumulator_StopWithoutStartDispatchesNothing(t *testing.T) {
	var calls []Call
	a := NewAccumulator(func(c Call) { calls = append(calls, c) })

	a.Consume(blockStop())
	a.Consume(jsonDelta(`{"from":"a","to":"b"}`))
	a.Consume(blockStop())

	assert.Empty(t, calls)
}

func TestAccumulator_SecondCallIndependent(t *testing.T) {
	var calls []Call
	a := NewAccumulator(func(c Call) { calls = append(calls, c) })

	a.Consume(toolStart(ToolAddWorkflowNode))
	a.Consume(jsonDelta(`{"id":"pos_data","label":"POS Data","type":"source"}`))
	a.Consume(blockStop())

	a.Consume(toolStart(ToolUpdateInterviewStage))
	a.Consume(jsonDelta(`{"stage":"data_sources"}`))
	a.Consume(blockStop())

	require.Len(t, calls, 2)
	node, ok := calls[0].(AddWorkflowNode)
	require.True(t, ok)
	assert.Equal(t, "pos_data", node.ID)

	st, ok := calls[1].(UpdateInterviewStage)
	require.True(t, ok)
	assert.Equal(t, "data_sources", st.Stage)
}

func TestAccumulator_MalformedArgumentsDropped(t *testing.T) {
	var calls []Call
	a := NewAccumulator(func(c Call) { calls = append(calls, c) })

	a.Consume(toolStart(ToolAddWorkflowNode))
	a.Consume(jsonDelta(`{"id":"x","label":`)) // never completed
	a.Consume(blockStop())

	// The stream continues; a following valid call still dispatches.
	a.Consume(toolStart(ToolAddWorkflowNode))
	a.Consume(jsonDelta(`{"id":"y","label":"Y","type":"output"}`))
	a.Consume(blockStop())

	require.Len(t, calls, 1)
	assert.Equal(t, "y", calls[0].(AddWorkflowNode).ID)
}

func TestAccumulator_SalvagesDecoratedArguments(t *testing.T) {
	var calls []Call
	a := NewAccumulator(func(c Call) { calls = append(calls, c) })

	// Fenced JSON with a trailing comma still yields a call.
	a.Consume(toolStart(ToolAddWorkflowNode))
	a.Consume(jsonDelta("```json\n{\"id\":\"crm\",\"label\":\"CRM\",\"type\":\"source\",}\n```"))
	a.Consume(blockStop())

	require.Len(t, calls, 1)
	assert.Equal(t, "crm", calls[0].(AddWorkflowNode).ID)
}

func TestAccumulator_SchemaRejectsInvalidArguments(t *testing.T) {
	var calls []Call
	a := NewAccumulator(func(c Call) { calls = append(calls, c) })

	// type outside the enum
	a.Consume(toolStart(ToolAddWorkflowNode))
	a.Consume(jsonDelta(`{"id":"x","label":"X","type":"database"}`))
	a.Consume(blockStop())

	// missing required field
	a.Consume(toolStart(ToolAddWorkflowConnection))
	a.Consume(jsonDelta(`{"from":"a"}`))
	a.Consume(blockStop())

	assert.Empty(t, calls)
}

func TestAccumulator_UnknownToolDropped(t *testing.T) {
	var calls []Call
	a := NewAccumulator(func(c Call) { calls = append(calls, c) })

	a.Consume(toolStart("delete_everything"))
	a.Consume(jsonDelta(`{}`))
	a.Consume(blockStop())

	assert.Empty(t, calls)
}

func TestAccumulator_TextAccumulation(t *testing.T) {
	var updates []string
	a := NewAccumulator(nil, WithTextSink(func(full string) {
		updates = append(updates, full)
	}))

	a.Consume(textDelta("What outcome"))
	a.Consume(textDelta(" are you"))
	a.Consume(textDelta(" trying to hit?"))

	assert.Equal(t, "What outcome are you trying to hit?", a.Text())
	assert.Equal(t, []string{
		"What outcome",
		"What outcome are you",
		"What outcome are you trying to hit?",
	}, updates)
}

func TestAccumulator_SyntheticEvents(t *testing.T) {
	var suggestions []string
	var commentary string
	var streamErr string

	a := NewAccumulator(nil,
		WithSuggestionsSink(func(s []string) { suggestions = s }),
		WithCommentarySink(func(c string) { commentary = c }),
		WithErrorSink(func(e string) { streamErr = e }),
	)

	a.Consume(&stream.Event{Type: stream.EventSuggestions, Suggestions: []string{"one", "two"}})
	a.Consume(&stream.Event{Type: stream.EventCommentary, Commentary: "mapping sources"})
	a.Consume(&stream.Event{Type: stream.EventError, Error: "upstream gone"})

	assert.Equal(t, []string{"one", "two"}, suggestions)
	assert.Equal(t, "mapping sources", commentary)
	assert.Equal(t, "upstream gone", streamErr)
}

func TestParse_ExtractUserContextFieldPresence(t *testing.T) {
	call, err := Parse(ToolExtractUserContext, json.RawMessage(
		`{"role":"ops manager","pain_points":["manual pulls"]}`))
	require.NoError(t, err)

	extract, ok := call.(ExtractUserContext)
	require.True(t, ok)
	require.NotNil(t, extract.Role)
	assert.Equal(t, "ops manager", *extract.Role)
	assert.Nil(t, extract.Department)
	assert.Equal(t, []string{"manual pulls"}, extract.PainPoints)
	assert.Nil(t, extract.CurrentTools)
}

func TestDefinitions_CoverVocabulary(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 6)

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Description)
		assert.True(t, json.Valid(d.InputSchema))
	}
	assert.Equal(t, []string{
		ToolAddWorkflowNode,
		ToolAddWorkflowConnection,
		ToolUpdateInterviewStage,
		ToolExtractUserContext,
		ToolGenerateStateImage,
		ToolRequestValidation,
	}, names)
}
