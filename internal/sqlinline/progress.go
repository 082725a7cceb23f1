package sqlinline

// RunProgressChannel is the NOTIFY channel carrying run progress between processes.
const RunProgressChannel = "run_progress"

const QNotifyRunProgress = `--sql 050142e8-69b1-4897-8ea5-295cf2f4db5c
select pg_notify('run_progress', $1::text);
`

const QListenRunProgress = `--sql 99bc9b72-e112-40e9-8d3a-ed047c1775dc
listen run_progress;
`
