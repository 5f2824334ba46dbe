package domain

// KeyPrefix is the default namespace for cache keys.
const KeyPrefix = "aggflat:"
