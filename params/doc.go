// Package params reads operator parameter files and the root bundle.
//
// Both use the same line-oriented declaration syntax:
//
//	#define AP_PIN "123456"
//	#define COMPONENT_IDS 0x11111124, 0x11111125
//	//#define ATTEST_KEY_UNWRAPPED 00112233445566778899aabbccddeeff
//
// A line whose first token is a recognized key, such as
//
//	COMPONENT_IDS = "1001,1002,1003"
//
// declares that key; otherwise the second token is the key. Keys are matched
// as whole tokens. The value is the rest of the line from the third token,
// with surrounding whitespace and double quotes removed. Lines with fewer than
// two tokens are ignored, and a later declaration of a key replaces an earlier
// one.
package params
