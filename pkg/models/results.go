package models

// Intent is the classifier vocabulary for what the user wants.
type Intent string

const (
	IntentGeneralQuery Intent = "general_query"
	IntentCancellation Intent = "cancellation"
	IntentOrderQuery   Intent = "order_query"
	IntentRefundQuery  Intent = "refund_query"
)

// IsValid reports whether the intent belongs to the classifier vocabulary.
func (i Intent) IsValid() bool {
	switch i {
	case IntentGeneralQuery, IntentCancellation, IntentOrderQuery, IntentRefundQuery:
		return true
	default:
		return false
	}
}

// RouterIntent is the router vocabulary used to select a module.
type RouterIntent string

const (
	RouterTrackShipment RouterIntent = "TRACK_SHIPMENT"
	RouterCancelOrder   RouterIntent = "CANCEL_ORDER"
	RouterRefundRequest RouterIntent = "REFUND_REQUEST"
	RouterFAQSupport    RouterIntent = "FAQ_SUPPORT"
)

// RouterIntents lists the known router vocabulary.
var RouterIntents = []RouterIntent{
	RouterTrackShipment,
	RouterCancelOrder,
	RouterRefundRequest,
	RouterFAQSupport,
}

// IsValid reports whether the router intent belongs to the router vocabulary.
func (r RouterIntent) IsValid() bool {
	for _, known := range RouterIntents {
		if r == known {
			return true
		}
	}

	return false
}

// DeliveryMethod is the routing hint a step hands back to the orchestrator.
type DeliveryMethod string

const (
	MethodToCallerDirectly        DeliveryMethod = "to-caller-directly"
	MethodNeedsFurtherProcessing  DeliveryMethod = "needs-further-processing"
	MethodPresentModuleOutput     DeliveryMethod = "present-module-output-directly"
	MethodNeedsLanguageFormatting DeliveryMethod = "needs-language-formatting"
)

// ClassifierResult is the output of the intent classifier.
type ClassifierResult struct {
	NodeID        string         `json:"nodeId"`
	ExecutionTime int64          `json:"executionTime"`
	Intent        Intent         `json:"intent"`
	Response      string         `json:"response"`
	ExtractedData map[string]any `json:"extractedData,omitempty"`
	Method        DeliveryMethod `json:"method"`
}

// RouterResult is the output of the intent router.
type RouterResult struct {
	NodeID        string         `json:"nodeId"`
	ExecutionTime int64          `json:"executionTime"`
	TargetModule  *string        `json:"targetModule"`
	RouterIntent  *RouterIntent  `json:"routerIntent"`
	Data          map[string]any `json:"data"`
}

// ModuleResult is the output of a module execution.
type ModuleResult struct {
	NodeID        string         `json:"nodeId"`
	ExecutionTime int64          `json:"executionTime"`
	Success       bool           `json:"success"`
	Result        map[string]any `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	ErrorCode     ErrorCode      `json:"errorCode,omitempty"`
	Method        DeliveryMethod `json:"method"`
	ModuleType    ModuleType     `json:"moduleType"`
}

// FormattedResponse is the output of the response formatter.
type FormattedResponse struct {
	NodeID        string       `json:"nodeId"`
	ExecutionTime int64        `json:"executionTime"`
	Payload       any          `json:"payload"`
	ResponseType  ResponseType `json:"responseType"`
}
