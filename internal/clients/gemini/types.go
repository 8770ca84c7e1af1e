package gemini

// Part 内容片段
type Part struct {
	Text string `json:"text"`
}

// Content 一轮对话内容
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerateContentRequest generateContent 请求体
//
// 每次请求只有一轮用户内容，不携带历史。
type GenerateContentRequest struct {
	SystemInstruction *Content  `json:"system_instruction,omitempty"` // 系统指令
	Contents          []Content `json:"contents"`                     // 对话内容
}

// ResponsePart 响应中的内容片段，字段可能缺失
type ResponsePart struct {
	Text *string `json:"text,omitempty"`
}

// ResponseContent 候选回答内容
type ResponseContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []ResponsePart `json:"parts,omitempty"`
}

// Candidate 候选回答
type Candidate struct {
	Content      *ResponseContent `json:"content,omitempty"`
	FinishReason string           `json:"finishReason,omitempty"`
}

// PromptFeedback 提示词审核反馈
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata token 用量
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateContentResponse generateContent 响应体
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// FirstCandidate 返回第一个候选回答
func (r *GenerateContentResponse) FirstCandidate() (*Candidate, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return nil, false
	}
	return &r.Candidates[0], true
}

// FirstPart 返回候选回答的第一个片段
func (c *Candidate) FirstPart() (*ResponsePart, bool) {
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 {
		return nil, false
	}
	return &c.Content.Parts[0], true
}

// FirstText 按 candidates[0].content.parts[0].text 取回答文本
//
// 任一环节缺失或文本为空时返回 false。
func (r *GenerateContentResponse) FirstText() (string, bool) {
	candidate, ok := r.FirstCandidate()
	if !ok {
		return "", false
	}
	part, ok := candidate.FirstPart()
	if !ok || part.Text == nil || *part.Text == "" {
		return "", false
	}
	return *part.Text, true
}
