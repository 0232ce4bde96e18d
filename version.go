package voxflow

// Version is the voxflow release version.
const Version = "0.1.0"
