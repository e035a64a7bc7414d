package execution

const (
	UnknownErrorMessage = "Unknown error"
	errorAtNodeFormat   = "Error at node: "
)

// ExtractError finds a human-readable error for a failed execution. Precedence:
//
//  1. resultData.error.message
//  2. resultData.error as a plain string
//  3. "Error at node: <resultData.lastNodeExecuted>"
//  4. data.error.message, then data.error as a string (and the same at the top level)
//  5. "Unknown error"
//
// resultData is looked up under data first, then at the top of the record.
func ExtractError(payload map[string]any) string {
	for _, root := range [][]string{{"data", "resultData"}, {"resultData"}} {
		rd, ok := lookup(payload, root...)
		if !ok {
			continue
		}
		resultData, ok := rd.(map[string]any)
		if !ok {
			continue
		}
		if msg := lookupString(resultData, "error", "message"); msg != "" {
			return msg
		}
		if v, ok := lookup(resultData, "error"); ok {
			if s, isStr := v.(string); isStr && s != "" {
				return s
			}
		}
		if node := lookupString(resultData, "lastNodeExecuted"); node != "" {
			return errorAtNodeFormat + node
		}
	}

	for _, root := range [][]string{{"data"}, {}} {
		if msg := lookupString(payload, append(root, "error", "message")...); msg != "" {
			return msg
		}
		if v, ok := lookup(payload, append(root, "error")...); ok {
			if s, isStr := v.(string); isStr && s != "" {
				return s
			}
		}
	}
	return UnknownErrorMessage
}
