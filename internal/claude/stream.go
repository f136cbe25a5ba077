package claude

import (
	"encoding/json"
	"fmt"
)

// Message is a decoded stream-json message delivered to the caller.
type Message interface {
	message()
}

// ContentBlock is one element of an assistant or user message body.
type ContentBlock interface {
	contentBlock()
}

// TextBlock carries assistant text.
type TextBlock struct {
	// Text is the plain text content.
	Text string
}

// ThinkingBlock carries extended-thinking output.
type ThinkingBlock struct {
	// Thinking is the reasoning text.
	Thinking string
}

// ToolUseBlock announces a tool invocation requested by the model.
type ToolUseBlock struct {
	// ID is the tool use correlation id.
	ID string
	// Name is the tool being invoked.
	Name string
	// Input holds the tool arguments.
	Input map[string]any
}

// ToolResultBlock carries a tool's output back into the conversation.
type ToolResultBlock struct {
	// ToolUseID links the result to its tool_use block.
	ToolUseID string
	// Content is the result payload.
	Content any
	// IsError reports a failed tool run.
	IsError bool
}

func (TextBlock) contentBlock()       {}
func (ThinkingBlock) contentBlock()   {}
func (ToolUseBlock) contentBlock()    {}
func (ToolResultBlock) contentBlock() {}

// AssistantMessage is a full assistant turn.
type AssistantMessage struct {
	// Content lists the message blocks in order.
	Content []ContentBlock
	// Model identifies the model that produced the message.
	Model string
}

// UserMessage is a user-side message, usually synthesized tool results.
type UserMessage struct {
	// Content lists the message blocks in order.
	Content []ContentBlock
}

// SystemMessage is a CLI lifecycle notification such as session init.
type SystemMessage struct {
	// Subtype categorizes the notification.
	Subtype string
	// Data retains the full event payload.
	Data map[string]any
}

// ResultMessage terminates one query's response stream.
type ResultMessage struct {
	// Subtype distinguishes success from error results.
	Subtype string
	// IsError reports whether the turn failed.
	IsError bool
	// DurationMS is the total turn duration in milliseconds.
	DurationMS int64
	// NumTurns counts assistant turns in the exchange.
	NumTurns int
	// Result holds the final assistant text when present.
	Result string
	// SessionID scopes the result to the CLI session.
	SessionID string
	// TotalCostUSD is the estimated spend for the turn.
	TotalCostUSD float64
	// Usage carries raw token accounting.
	Usage map[string]any
}

func (AssistantMessage) message() {}
func (UserMessage) message()      {}
func (SystemMessage) message()    {}
func (ResultMessage) message()    {}

// streamEnvelope is the minimal shape needed to dispatch a stream-json line.
type streamEnvelope struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Request   map[string]any  `json:"request,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`

	// Result event fields.
	IsError      bool            `json:"is_error,omitempty"`
	DurationMS   int64           `json:"duration_ms,omitempty"`
	NumTurns     int             `json:"num_turns,omitempty"`
	Result       string          `json:"result,omitempty"`
	TotalCostUSD float64         `json:"total_cost_usd,omitempty"`
	Usage        map[string]any  `json:"usage,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// messagePayload is the message body inside assistant and user events.
type messagePayload struct {
	Role    string          `json:"role"`
	Model   string          `json:"model,omitempty"`
	Content json.RawMessage `json:"content"`
}

// rawBlock is the wire form of one content block.
type rawBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	Thinking  string         `json:"thinking,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   any            `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// decodeEnvelope parses one NDJSON line into an envelope.
func decodeEnvelope(line []byte) (streamEnvelope, error) {
	var envelope streamEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return streamEnvelope{}, fmt.Errorf("parse stream event: %w", err)
	}
	envelope.Raw = append(json.RawMessage(nil), line...)
	return envelope, nil
}

// decodeMessage converts an assistant/user/system/result envelope into the
// caller-facing message type. Unknown event types return (nil, nil) so the
// reader can skip them without failing the stream.
func decodeMessage(envelope streamEnvelope) (Message, error) {
	switch envelope.Type {
	case "assistant":
		payload, blocks, err := decodePayload(envelope.Message)
		if err != nil {
			return nil, err
		}
		return AssistantMessage{Content: blocks, Model: payload.Model}, nil
	case "user":
		_, blocks, err := decodePayload(envelope.Message)
		if err != nil {
			return nil, err
		}
		return UserMessage{Content: blocks}, nil
	case "system":
		var data map[string]any
		if len(envelope.Raw) > 0 {
			if err := json.Unmarshal(envelope.Raw, &data); err != nil {
				return nil, fmt.Errorf("parse system event: %w", err)
			}
		}
		return SystemMessage{Subtype: envelope.Subtype, Data: data}, nil
	case "result":
		return ResultMessage{
			Subtype:      envelope.Subtype,
			IsError:      envelope.IsError,
			DurationMS:   envelope.DurationMS,
			NumTurns:     envelope.NumTurns,
			Result:       envelope.Result,
			SessionID:    envelope.SessionID,
			TotalCostUSD: envelope.TotalCostUSD,
			Usage:        envelope.Usage,
		}, nil
	default:
		return nil, nil
	}
}

// decodePayload parses a message body and its content blocks. String bodies
// become a single text block, matching the CLI's shorthand form.
func decodePayload(raw json.RawMessage) (messagePayload, []ContentBlock, error) {
	var payload messagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return messagePayload{}, nil, fmt.Errorf("parse message payload: %w", err)
	}

	var text string
	if err := json.Unmarshal(payload.Content, &text); err == nil {
		return payload, []ContentBlock{TextBlock{Text: text}}, nil
	}

	var rawBlocks []rawBlock
	if err := json.Unmarshal(payload.Content, &rawBlocks); err != nil {
		return messagePayload{}, nil, fmt.Errorf("parse content blocks: %w", err)
	}

	blocks := make([]ContentBlock, 0, len(rawBlocks))
	for _, block := range rawBlocks {
		switch block.Type {
		case "text":
			blocks = append(blocks, TextBlock{Text: block.Text})
		case "thinking":
			blocks = append(blocks, ThinkingBlock{Thinking: block.Thinking})
		case "tool_use":
			blocks = append(blocks, ToolUseBlock{ID: block.ID, Name: block.Name, Input: block.Input})
		case "tool_result":
			blocks = append(blocks, ToolResultBlock{
				ToolUseID: block.ToolUseID,
				Content:   block.Content,
				IsError:   block.IsError,
			})
		}
	}
	return payload, blocks, nil
}

// controlResponsePayload is the body of a control_response event.
type controlResponsePayload struct {
	// Subtype is "success" or "error".
	Subtype string `json:"subtype"`
	// RequestID echoes the request being answered.
	RequestID string `json:"request_id"`
	// Response carries the success payload.
	Response map[string]any `json:"response,omitempty"`
	// Error carries the failure message.
	Error string `json:"error,omitempty"`
}

// outgoingControlRequest is a client-initiated control request line.
type outgoingControlRequest struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Request   map[string]any `json:"request"`
}

// outgoingControlResponse answers a CLI-initiated control request.
type outgoingControlResponse struct {
	Type     string                 `json:"type"`
	Response controlResponsePayload `json:"response"`
}

// outgoingUserMessage is a prompt line sent on stdin.
type outgoingUserMessage struct {
	Type    string         `json:"type"`
	Message messagePayload `json:"message"`
	// ParentToolUseID is unused for top-level prompts but part of the shape.
	ParentToolUseID *string `json:"parent_tool_use_id"`
	SessionID       string  `json:"session_id,omitempty"`
}
