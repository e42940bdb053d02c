package usecase

// BuildChatPrompt is exported for testing
var BuildChatPrompt = buildChatPrompt

// NormalizeQuery is exported for testing
var NormalizeQuery = normalizeQuery

