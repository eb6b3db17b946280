// Package header renders firmware constant declarations.
//
// An Emitter accumulates named constants in memory and renders them in a
// single pass, so a failed run never leaves a partially written header
// behind. Each constant carries a role guard; constants sharing a guard are
// emitted inside one #ifdef block:
//
//	#include <stdint.h>
//	#pragma once
//	constexpr const uint8_t HMAC_KEY[32] = {17,4,...,};
//	#ifdef AP_BUILD
//	constexpr const uint8_t BOOT_A_PRIV[32] = {...};
//	#endif
//
// Array lengths are always taken from the emitted elements. Decode reads a
// rendered header back into constants.
package header
