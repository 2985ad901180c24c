// Package lineui is the line-mode front end used with --plain: numbered
// lists answered by typing indices, and a console that prints transcript
// lines above a readline prompt. It suits dumb terminals, serial consoles
// and scripted sessions.
package lineui
