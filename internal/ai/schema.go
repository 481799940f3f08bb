package ai

import "fmt"

const attemptsTable = "swap_attempts"

// schemaDescription describes the swap history table for NL→SQL prompting.
// Keep in sync with createAttemptsTable in internal/cache/clickhouse.go.
func schemaDescription(database string) string {
	return fmt.Sprintf(`
Database: %[1]s
Table: %[2]s

Columns:
  - id          String      -- attempt id (uuid)
  - batch_id    String      -- wallet batch id, empty when submission failed
  - timestamp   DateTime64  -- time of the attempt (UTC)
  - chain_id    UInt64      -- EVM chain id (8453 = Base, 84532 = Base Sepolia)
  - account     String      -- submitting wallet address
  - pair        String      -- symbols, e.g. "ETH/USDC"
  - token_in    String      -- lowercase address of the token sold
  - token_out   String      -- lowercase address of the token bought
  - amount_in   String      -- raw integer amount in the token's smallest unit
  - amount_out  String      -- raw integer amount in the token's smallest unit
  - exact_side  String      -- "exactIn" or "exactOut"
  - strategy    String      -- "amm" (on-chain pair) or "aggregator" (Kyberswap)
  - approval    Bool        -- whether an approve call was batched in
  - status      String      -- "submitted" or "failed"
  - error       String      -- failure text for failed attempts

Notes:
  - Amounts are strings; use toUInt256OrZero(amount_in) for arithmetic.
  - Success rate is countIf(status = 'submitted') / count().
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`, database, attemptsTable)
}
