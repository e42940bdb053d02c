package firestore

// IndexesToAdd is exported for testing
var IndexesToAdd = indexesToAdd
