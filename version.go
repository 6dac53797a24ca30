package espalier

// Version is the library version, printed by the CLI.
const Version = "0.1.0"
