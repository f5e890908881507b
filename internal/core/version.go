package core

// Version 当前版本,发布时通过 -ldflags 覆盖 main.Version
const Version = "1.0.0"
