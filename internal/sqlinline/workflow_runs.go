package sqlinline

const QAbandonStaleWorkflowRun = `--sql 7e0c0692-becd-4f34-adb2-0e88b36ee898
update workflow_runs
set status = 'finished',
    stage = 'failed',
    message = 'abandoned',
    finished_at = now(),
    updated_at = now()
where workflow_id = $1::uuid
  and status = 'running'
  and started_at < $2::timestamptz;
`

const QInsertWorkflowRun = `--sql bec13b5a-c710-442b-9d01-1e974eaaac2d
insert into workflow_runs (id, workflow_id, owner_id, trigger, stage, message, status, started_at, updated_at)
values ($1::text, $2::uuid, $3::uuid, $4::text, $5::text, '', 'running', $6::timestamptz, now());
`

const QUpdateWorkflowRunStage = `--sql ed657e43-4270-46bc-8cd3-2fc105849925
update workflow_runs
set stage = $2::text,
    message = $3::text,
    updated_at = now()
where id = $1::text
  and status = 'running';
`

const QFinishWorkflowRun = `--sql 29a38d35-1b3b-4b75-b5bd-c3cd9aba44be
update workflow_runs
set status = 'finished',
    stage = $2::text,
    message = $3::text,
    finished_at = now(),
    updated_at = now()
where id = $1::text;
`

const QSelectRunningWorkflowRun = `--sql 9ef537c9-606d-4f08-b2b5-4a371da5f14b
select id, workflow_id, owner_id, trigger, stage, message, started_at
from workflow_runs
where workflow_id = $1::uuid
  and status = 'running'
limit 1;
`

const QListRunningWorkflowRunsByOwner = `--sql e55239ac-2d1e-4eea-885b-6bd00d0d3fd3
select id, workflow_id, owner_id, trigger, stage, message, started_at
from workflow_runs
where owner_id = $1::uuid
  and status = 'running'
order by started_at asc;
`
