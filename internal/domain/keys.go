package domain

// KeyPrefix namespaces every ragdex key in the shared store.
const KeyPrefix = "ragdex:"
