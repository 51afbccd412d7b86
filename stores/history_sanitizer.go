package stores

import (
	"log"
)

// SanitizeHistory ensures the message history has valid turn structure before
// it is replayed as model context. It handles two main issues:
// 1. Corruption from interrupted requests - orphaned tool_calls without
//    matching tool_results
// 2. Orphaned tool_results at the start of history without preceding calls
//
// Valid turn patterns:
// - user_message -> assistant_message
// - user_message -> tool_call -> tool_result -> assistant_message (or more tool cycles)
//
// The function ensures:
// - History always starts with a user_message or assistant_message
// - Every tool_call has a matching tool_result after it
// - No orphaned tool_results without preceding tool_calls
func SanitizeHistory(msgs []Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	// Step 1: Find a valid starting point
	startIdx := findValidStartIndex(msgs)
	if startIdx == -1 {
		// No valid starting point found - fall back to the latest user_message
		// to preserve at least some context
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Type == TypeUserMessage {
				log.Printf("[HISTORY_SANITIZER] No valid start, but found user_message at index %d, using as fallback", i)
				return []Message{msgs[i]}
			}
		}
		log.Printf("[HISTORY_SANITIZER] No valid starting point found, returning empty history")
		return []Message{}
	}

	if startIdx > 0 {
		log.Printf("[HISTORY_SANITIZER] Skipping first %d messages to find valid start (was type: %s)", startIdx, msgs[0].Type)
		msgs = msgs[startIdx:]
	}

	// Step 2: Validate and fix tool call cycles
	sanitized := sanitizeToolCycles(msgs)

	if len(sanitized) != len(msgs) {
		log.Printf("[HISTORY_SANITIZER] Removed %d messages with broken tool cycles", len(msgs)-len(sanitized))
	}

	return sanitized
}

// findValidStartIndex finds the first message that is a valid conversation
// start: a user_message or an assistant_message. Leading tool_calls and
// tool_results are orphaned remnants of an interrupted cycle.
func findValidStartIndex(msgs []Message) int {
	for i, msg := range msgs {
		switch msg.Type {
		case TypeUserMessage, TypeAssistantMessage:
			return i
		case TypeToolCall, TypeToolResult:
			continue
		default:
			// Unknown type, try to use it
			return i
		}
	}
	return -1
}

// sanitizeToolCycles walks through messages and ensures tool call cycles are
// complete. A tool_call without a matching tool_result in the middle of
// history is removed along with its batch; a tool_result without a preceding
// tool_call is removed.
func sanitizeToolCycles(msgs []Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	result := make([]Message, 0, len(msgs))
	i := 0

	for i < len(msgs) {
		msg := msgs[i]

		switch msg.Type {
		case TypeUserMessage, TypeAssistantMessage:
			result = append(result, msg)
			i++

		case TypeToolCall:
			cycleStart := i
			cycleMessages, nextIdx, valid := collectCompleteCycle(msgs, i)

			if valid {
				result = append(result, cycleMessages...)
				i = nextIdx
			} else {
				// Incomplete cycle: only persisted-but-interrupted requests
				// produce these; they cannot be replayed safely.
				log.Printf("[HISTORY_SANITIZER] Removing incomplete tool cycle at index %d (tool_call without result)", cycleStart)
				i = nextIdx
			}

		case TypeToolResult:
			log.Printf("[HISTORY_SANITIZER] Removing orphaned tool_result at index %d", i)
			i++

		default:
			log.Printf("[HISTORY_SANITIZER] Unknown message type '%s' at index %d, including anyway", msg.Type, i)
			result = append(result, msg)
			i++
		}
	}

	return result
}

// collectCompleteCycle collects a complete tool call cycle starting from a
// tool_call: one or more tool_calls followed by their tool_results.
//
// Returns the messages in the cycle, the index to continue from, and whether
// the cycle is complete.
func collectCompleteCycle(msgs []Message, startIdx int) ([]Message, int, bool) {
	cycleMessages := []Message{}
	resultCount := 0
	i := startIdx

	// Phase 1: Collect tool_calls
	for i < len(msgs) && msgs[i].Type == TypeToolCall {
		cycleMessages = append(cycleMessages, msgs[i])
		i++
	}

	// Phase 2: Collect tool_results
	for i < len(msgs) && msgs[i].Type == TypeToolResult {
		cycleMessages = append(cycleMessages, msgs[i])
		resultCount++
		i++
	}

	// The result count might not exactly match the call count when results
	// are batched, but a cycle with no results at all is incomplete.
	if resultCount == 0 {
		return nil, i, false
	}

	return cycleMessages, i, true
}

// DetectCorruptedHistory checks if the history has issues that would cause
// model API errors. Returns a list of issues found (empty if history is clean).
func DetectCorruptedHistory(msgs []Message) []string {
	issues := []string{}

	if len(msgs) == 0 {
		return issues
	}

	if msgs[0].Type == TypeToolResult {
		issues = append(issues, "History starts with tool_result (orphaned)")
	}
	if msgs[0].Type == TypeToolCall {
		issues = append(issues, "History starts with tool_call (truncated mid-cycle)")
	}

	pendingCalls := 0
	for _, msg := range msgs {
		switch msg.Type {
		case TypeToolCall:
			pendingCalls++
		case TypeToolResult:
			if pendingCalls > 0 {
				pendingCalls--
			} else {
				issues = append(issues, "tool_result without preceding tool_call")
			}
		}
	}

	if pendingCalls > 0 {
		issues = append(issues, "Orphaned tool_call(s) without results at end of history")
	}

	for i := 1; i < len(msgs); i++ {
		prev := msgs[i-1]
		curr := msgs[i]
		if prev.Type == TypeUserMessage && curr.Type == TypeUserMessage {
			issues = append(issues, "Two consecutive user_messages")
		}
	}

	return issues
}
