package workflow

import "fmt"

// Kind is the module type of a node. The set of kinds is closed; documents
// carrying anything else are rejected by ParseKind.
type Kind string

// Browser operations.
const (
	KindOpenPage       Kind = "open_page"
	KindClickElement   Kind = "click_element"
	KindHoverElement   Kind = "hover_element"
	KindInputText      Kind = "input_text"
	KindGetElementInfo Kind = "get_element_info"
	KindWait           Kind = "wait"
	KindWaitElement    Kind = "wait_element"
	KindClosePage      Kind = "close_page"
	KindRefreshPage    Kind = "refresh_page"
	KindGoBack         Kind = "go_back"
	KindGoForward      Kind = "go_forward"
	KindHandleDialog   Kind = "handle_dialog"
)

// Form operations.
const (
	KindSelectDropdown Kind = "select_dropdown"
	KindSetCheckbox    Kind = "set_checkbox"
	KindDragElement    Kind = "drag_element"
	KindScrollPage     Kind = "scroll_page"
	KindUploadFile     Kind = "upload_file"
)

// Data handling.
const (
	KindSetVariable  Kind = "set_variable"
	KindJSONParse    Kind = "json_parse"
	KindBase64       Kind = "base64"
	KindRandomNumber Kind = "random_number"
	KindGetTime      Kind = "get_time"
	KindDownloadFile Kind = "download_file"
	KindSaveImage    Kind = "save_image"
	KindScreenshot   Kind = "screenshot"
	KindReadExcel    Kind = "read_excel"
)

// String, list and dict operations.
const (
	KindRegexExtract    Kind = "regex_extract"
	KindStringReplace   Kind = "string_replace"
	KindStringSplit     Kind = "string_split"
	KindStringJoin      Kind = "string_join"
	KindStringConcat    Kind = "string_concat"
	KindStringTrim      Kind = "string_trim"
	KindStringCase      Kind = "string_case"
	KindStringSubstring Kind = "string_substring"
	KindListOperation   Kind = "list_operation"
	KindListGet         Kind = "list_get"
	KindListLength      Kind = "list_length"
	KindDictOperation   Kind = "dict_operation"
	KindDictGet         Kind = "dict_get"
	KindDictKeys        Kind = "dict_keys"
)

// Table and database operations.
const (
	KindTableAddRow    Kind = "table_add_row"
	KindTableAddColumn Kind = "table_add_column"
	KindTableSetCell   Kind = "table_set_cell"
	KindTableGetCell   Kind = "table_get_cell"
	KindTableDeleteRow Kind = "table_delete_row"
	KindTableClear     Kind = "table_clear"
	KindTableExport    Kind = "table_export"
	KindDBConnect      Kind = "db_connect"
	KindDBQuery        Kind = "db_query"
	KindDBExecute      Kind = "db_execute"
	KindDBInsert       Kind = "db_insert"
	KindDBUpdate       Kind = "db_update"
	KindDBDelete       Kind = "db_delete"
	KindDBClose        Kind = "db_close"
)

// Network, AI and captcha.
const (
	KindAPIRequest    Kind = "api_request"
	KindSendEmail     Kind = "send_email"
	KindAIChat        Kind = "ai_chat"
	KindAIVision      Kind = "ai_vision"
	KindOCRCaptcha    Kind = "ocr_captcha"
	KindSliderCaptcha Kind = "slider_captcha"
)

// Control flow.
const (
	KindCondition     Kind = "condition"
	KindLoop          Kind = "loop"
	KindForeach       Kind = "foreach"
	KindBreakLoop     Kind = "break_loop"
	KindContinueLoop  Kind = "continue_loop"
	KindScheduledTask Kind = "scheduled_task"
	KindSubflow       Kind = "subflow"
)

// Utilities and canvas annotations.
const (
	KindPrintLog        Kind = "print_log"
	KindPlaySound       Kind = "play_sound"
	KindPlayMusic       Kind = "play_music"
	KindInputPrompt     Kind = "input_prompt"
	KindTextToSpeech    Kind = "text_to_speech"
	KindJSScript        Kind = "js_script"
	KindSetClipboard    Kind = "set_clipboard"
	KindGetClipboard    Kind = "get_clipboard"
	KindKeyboardAction  Kind = "keyboard_action"
	KindRealMouseScroll Kind = "real_mouse_scroll"
	KindGroup           Kind = "group"
	KindNote            Kind = "note"
)

var kindLabels = map[Kind]string{
	KindOpenPage:         "Open Page",
	KindClickElement:     "Click Element",
	KindHoverElement:     "Hover Element",
	KindInputText:        "Input Text",
	KindGetElementInfo:   "Extract Data",
	KindWait:             "Wait",
	KindWaitElement:      "Wait For Element",
	KindClosePage:        "Close Page",
	KindRefreshPage:      "Refresh Page",
	KindGoBack:           "Go Back",
	KindGoForward:        "Go Forward",
	KindHandleDialog:     "Handle Dialog",
	KindSelectDropdown:   "Select Dropdown",
	KindSetCheckbox:      "Set Checkbox",
	KindDragElement:      "Drag Element",
	KindScrollPage:       "Scroll Page",
	KindUploadFile:       "Upload File",
	KindSetVariable:      "Set Variable",
	KindJSONParse:        "JSON Parse",
	KindBase64:           "Base64",
	KindRandomNumber:     "Random Number",
	KindGetTime:          "Get Time",
	KindDownloadFile:     "Download File",
	KindSaveImage:        "Save Image",
	KindScreenshot:       "Screenshot",
	KindReadExcel:        "Read Excel",
	KindRegexExtract:     "Regex Extract",
	KindStringReplace:    "Replace Text",
	KindStringSplit:      "Split Text",
	KindStringJoin:       "Join Text",
	KindStringConcat:     "Concat Text",
	KindStringTrim:       "Trim Text",
	KindStringCase:       "Change Case",
	KindStringSubstring: "Substring",
	KindListOperation:    "List Operation",
	KindListGet:          "List Get",
	KindListLength:       "List Length",
	KindDictOperation:    "Dict Operation",
	KindDictGet:          "Dict Get",
	KindDictKeys:         "Dict Keys",
	KindTableAddRow:      "Add Row",
	KindTableAddColumn:   "Add Column",
	KindTableSetCell:     "Set Cell",
	KindTableGetCell:     "Get Cell",
	KindTableDeleteRow:   "Delete Row",
	KindTableClear:       "Clear Table",
	KindTableExport:      "Export Table",
	KindDBConnect:        "Connect Database",
	KindDBQuery:          "Query Data",
	KindDBExecute:        "Execute SQL",
	KindDBInsert:         "Insert Data",
	KindDBUpdate:         "Update Data",
	KindDBDelete:         "Delete Data",
	KindDBClose:          "Close Connection",
	KindAPIRequest:       "HTTP Request",
	KindSendEmail:        "Send Email",
	KindAIChat:           "AI Chat",
	KindAIVision:         "AI Vision",
	KindOCRCaptcha:       "OCR Captcha",
	KindSliderCaptcha:    "Slider Captcha",
	KindCondition:        "Condition",
	KindLoop:             "Loop",
	KindForeach:          "For Each",
	KindBreakLoop:        "Break Loop",
	KindContinueLoop:     "Continue Loop",
	KindScheduledTask:    "Scheduled Task",
	KindSubflow:          "Subflow",
	KindPrintLog:         "Print Log",
	KindPlaySound:        "Play Sound",
	KindPlayMusic:        "Play Music",
	KindInputPrompt:      "User Input",
	KindTextToSpeech:     "Text To Speech",
	KindJSScript:         "Run Script",
	KindSetClipboard:     "Set Clipboard",
	KindGetClipboard:     "Get Clipboard",
	KindKeyboardAction:   "Keyboard Action",
	KindRealMouseScroll: "Mouse Scroll",
	KindGroup:            "",
	KindNote:             "",
}

// ParseKind validates s against the closed set of node kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindLabels[k]; !ok {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}

// Valid reports whether k belongs to the enumeration.
func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label returns the default display label for k. Groups and notes have none.
func (k Kind) Label() string {
	return kindLabels[k]
}

// IsAnnotation reports whether k is a canvas-only container (group or note)
// rather than an executable step.
func (k Kind) IsAnnotation() bool {
	return k == KindGroup || k == KindNote
}

// RenderType is the renderer tag stored next to the node in documents.
func (k Kind) RenderType() string {
	switch k {
	case KindGroup:
		return "groupNode"
	case KindNote:
		return "noteNode"
	default:
		return "moduleNode"
	}
}

// Kinds returns every kind in no particular order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindLabels))
	for k := range kindLabels {
		out = append(out, k)
	}
	return out
}
